package vnode

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/coremount/vnodefs/session"
	"github.com/coremount/vnodefs/wire"
)

// Kind classifies the taxonomy of spec.md §7 so that ToErrno can translate
// uniformly at the VFS boundary (Design Note §9: "an implementation should
// expose a single error type ... and translate at the VFS boundary").
type Kind int

const (
	// KindErrno is an ordinary domain errno (ENOENT, EPERM, EEXIST, ...).
	KindErrno Kind = iota
	// KindDead marks a dead/disconnected session (spec.md §7).
	KindDead
	// KindNotImplemented marks an op the daemon does not implement, after
	// capability-downgrade policy has already run (spec.md §4.1).
	KindNotImplemented
	// KindProtocol marks a reply that violated a protocol-sanity invariant
	// (spec.md §7 "Protocol sanity").
	KindProtocol
)

// Error is the single error type this package returns from every entry
// point, unifying {Dead, NotImplemented, Protocol(Op), Errno} per Design
// Note §9.
type Error struct {
	Kind  Kind
	Op    wire.Op
	Errno syscall.Errno
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindDead:
		return "vnode: session dead"
	case KindNotImplemented:
		return fmt.Sprintf("vnode: %v not supported by daemon", e.Op)
	case KindProtocol:
		return fmt.Sprintf("vnode: protocol violation in %v reply", e.Op)
	default:
		return fmt.Sprintf("vnode: %v", e.Errno)
	}
}

// ToErrno translates e to the errno value the host VFS boundary expects
// (fuseutil/errors.go's errno-surfacing pattern, generalized past a single
// fuse.Errno type).
func (e *Error) ToErrno() syscall.Errno {
	switch e.Kind {
	case KindDead:
		return syscall.ENXIO
	case KindNotImplemented:
		if e.Errno != 0 {
			return e.Errno
		}
		return syscall.ENOTSUP
	case KindProtocol:
		return syscall.EIO
	default:
		return e.Errno
	}
}

// ToErrno extracts the host errno from any error returned by this package.
// Errors that are not *Error (should not happen for a well-formed call)
// translate to EIO.
func ToErrno(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	var ve *Error
	if errors.As(err, &ve) {
		return ve.ToErrno()
	}
	return syscall.EIO
}

func errnoErr(errno syscall.Errno) error { return &Error{Kind: KindErrno, Errno: errno} }
func deadErr() error                     { return &Error{Kind: KindDead} }
func protocolErr(op wire.Op) error       { return &Error{Kind: KindProtocol, Op: op} }

// notSupportedErrno is the op-specific errno a capability-missing outcome
// translates to when the protocol defines no fallback for it (spec.md
// §4.1, §7): ENOSYS is never surfaced to the VFS directly.
func notSupportedErrno(op wire.Op) syscall.Errno {
	return syscall.ENOTSUP
}

// translateDispatchErr applies the uniform policy of spec.md §4.1/§7 to an
// error returned by session.Dispatch: dead sessions become KindDead,
// capability-missing outcomes become KindNotImplemented (callers that have
// a fallback path, such as create->mknod, check the translated error's Kind
// for KindNotImplemented), and anything
// else is assumed to already be a syscall.Errno (the fake/real Transport
// contract: "any other errno — propagate verbatim").
func translateDispatchErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, session.ErrDead) {
		return deadErr()
	}

	var nse *session.NotSupportedError
	if errors.As(err, &nse) {
		return &Error{Kind: KindNotImplemented, Op: nse.Op, Errno: notSupportedErrno(nse.Op)}
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errnoErr(errno)
	}

	return errnoErr(syscall.EIO)
}
