// Package handle implements the per-node file-handle table (spec.md §3 "File
// handle", §4.2): three slots indexed by access class, reference-counted,
// opened/released against the daemon through a wire.Transport.
//
// Grounded on fs/dir_handle.go's handle-lifecycle shape, generalized from a
// single directory handle to the three-slot array spec.md §3 describes.
package handle

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/coremount/vnodefs/wire"
)

// Slot is one of a node's three file-handle slots. A slot is valid iff
// OpenCount > 0 (spec.md §3 "File handle" invariants).
type Slot struct {
	ID        wire.HandleID
	OpenCount int32
	OpenFlags int
	ReplyFlags wire.OpenReplyFlag
}

// Valid reports whether the slot currently holds a live daemon handle.
func (s *Slot) Valid() bool { return s.OpenCount > 0 }

// Table is the fufh[3] array described in spec.md §3, one per node. Callers
// must hold the owning node's lock (or the session's big lock, per the
// teacher's locking discipline in fs/fs.go) around all methods; Table does
// not lock itself.
type Table struct {
	slots [wire.NumAccessClasses]Slot
}

// Slot returns a pointer to the given class's slot for direct inspection
// (e.g. by read/write to pick an existing RDONLY/WRONLY handle before
// falling back to RDWR, per spec.md §4.6 "read/write").
func (t *Table) Slot(class wire.AccessClass) *Slot {
	return &t.slots[class]
}

// ClassForOpenFlags selects the access class for an open(2)-style request,
// per spec.md §4.2 "Class selection from open flags".
func ClassForOpenFlags(read, write bool) wire.AccessClass {
	switch {
	case read && write:
		return wire.ClassRDWR
	case write:
		return wire.ClassWRONLY
	default:
		// Includes the "zero" (neither bit set) compatibility case.
		return wire.ClassRDONLY
	}
}

// ClassForProt selects the access class for an mmap(2) request from
// protection bits, per spec.md §4.2.
func ClassForProt(prot int) wire.AccessClass {
	const (
		protRead  = 0x1
		protWrite = 0x2
	)
	switch {
	case prot&protWrite != 0 && prot&^(protWrite) != 0:
		return wire.ClassRDWR
	case prot&protWrite != 0:
		return wire.ClassWRONLY
	default:
		return wire.ClassRDONLY
	}
}

// openFunc issues OPEN (or OPENDIR) to the daemon for the given class.
type openFunc func(ctx context.Context, tr wire.Transport, node wire.NodeID, class wire.AccessClass, flags int) (wire.OpenReply, error)

// releaseFunc issues RELEASE (or RELEASEDIR).
type releaseFunc func(ctx context.Context, tr wire.Transport, node wire.NodeID, id wire.HandleID) error

// Get installs or reuses a handle for class. If the slot is already valid
// its OpenCount is incremented and the daemon is not contacted. Otherwise
// open is called to obtain a handle, which is installed with OpenCount=1.
// On error the slot is left invalid (spec.md §4.2 "get").
func (t *Table) Get(
	ctx context.Context,
	tr wire.Transport,
	node wire.NodeID,
	class wire.AccessClass,
	flags int,
	open openFunc,
) error {
	s := &t.slots[class]
	if s.Valid() {
		s.OpenCount++
		return nil
	}

	reply, err := open(ctx, tr, node, class, flags)
	if err != nil {
		return err
	}

	s.ID = reply.Handle
	s.OpenFlags = flags
	s.ReplyFlags = reply.Flags
	s.OpenCount = 1
	return nil
}

// GetWithMmapFallback is Get, plus the mmap fallback of spec.md §4.2: if the
// first attempt at a WRONLY/RDWR class fails with EACCES, retry once as
// RDONLY (the host cannot distinguish MAP_SHARED from MAP_PRIVATE, and this
// preserves the ability to map a library read-only).
func (t *Table) GetWithMmapFallback(
	ctx context.Context,
	tr wire.Transport,
	node wire.NodeID,
	class wire.AccessClass,
	flags int,
	open openFunc,
) (wire.AccessClass, error) {
	err := t.Get(ctx, tr, node, class, flags, open)
	if err == nil {
		return class, nil
	}

	if (class == wire.ClassWRONLY || class == wire.ClassRDWR) && errors.Is(err, os.ErrPermission) {
		if retryErr := t.Get(ctx, tr, node, wire.ClassRDONLY, flags, open); retryErr == nil {
			return wire.ClassRDONLY, nil
		}
	}

	return class, err
}

// Put decrements the slot's OpenCount; at zero it sends RELEASE/RELEASEDIR
// and invalidates the slot. Errors from the daemon are returned to the
// caller for logging but the slot is invalidated regardless (spec.md §4.2
// "put": "Errors are logged but do not fail the caller path").
func (t *Table) Put(
	ctx context.Context,
	tr wire.Transport,
	node wire.NodeID,
	class wire.AccessClass,
	release releaseFunc,
) error {
	s := &t.slots[class]
	if !s.Valid() {
		return fmt.Errorf("handle: Put on invalid slot %v for node %v", class, node)
	}

	s.OpenCount--
	if s.OpenCount > 0 {
		return nil
	}

	id := s.ID
	*s = Slot{}
	return release(ctx, tr, node, id)
}

// Inc bumps a slot's reference count without contacting the daemon (e.g. a
// second concurrent open of an already-open class).
func (t *Table) Inc(class wire.AccessClass) {
	t.slots[class].OpenCount++
}

// Dec decrements without releasing; returns true if the slot just became
// invalid (caller is then responsible for sending RELEASE, mirroring Put's
// split for callers that need to release after dropping the lock).
func (t *Table) Dec(class wire.AccessClass) (hitZero bool, id wire.HandleID) {
	s := &t.slots[class]
	if !s.Valid() {
		return false, 0
	}
	s.OpenCount--
	if s.OpenCount > 0 {
		return false, 0
	}
	id = s.ID
	*s = Slot{}
	return true, id
}

// Reset invalidates a slot unconditionally, used by reclaim/inactive (spec
// §4.6) which must drain every valid slot regardless of OpenCount.
func (t *Table) Reset(class wire.AccessClass) (wasValid bool, id wire.HandleID) {
	s := &t.slots[class]
	if !s.Valid() {
		return false, 0
	}
	id = s.ID
	*s = Slot{}
	return true, id
}

// InstallCreateHandle pre-installs the handle CREATE returned in one round
// trip into the RDWR slot with OpenCount=1 (spec.md §4.2 "Create fast
// path"), to be inherited by the subsequent open() on the new vnode.
func (t *Table) InstallCreateHandle(reply wire.OpenReply) {
	t.slots[wire.ClassRDWR] = Slot{
		ID:         reply.Handle,
		OpenCount:  1,
		ReplyFlags: reply.Flags,
	}
}

// AnyValid reports whether any slot currently holds a live handle, and
// returns the classes that do (for read/write's "use an existing slot"
// search and for reclaim's drain loop).
func (t *Table) AnyValid() []wire.AccessClass {
	var out []wire.AccessClass
	for c := wire.AccessClass(0); int(c) < wire.NumAccessClasses; c++ {
		if t.slots[c].Valid() {
			out = append(out, c)
		}
	}
	return out
}
