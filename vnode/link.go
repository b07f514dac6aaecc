// link.go implements Symlink, Mknod, Link, Rename and Remove/Unlink
// (spec.md §4.6), generalized from fs/fs.go's CreateSymlink/Unlink and
// original_source/fuse_vnops.c's EMLINK/EXDEV pre-checks ahead of LINK,
// which have no GCS-object analogue (a flat object namespace has no hard
// links) and so are written fresh against the spec and the original
// source.
package vnode

import (
	"context"
	"os"
	"syscall"

	"github.com/coremount/vnodefs/pathutil"
	"github.com/coremount/vnodefs/wire"
)

// SymlinkReply mirrors MkdirReply's shape.
type SymlinkReply struct {
	Child *Node
}

// Symlink builds a SYMLINK request and invalidates the parent's attrs on
// success (spec.md §4.6 "symlink/mknod/mkdir").
func (fs *FS) Symlink(ctx context.Context, parent *Node, name, target string) (SymlinkReply, error) {
	if err := fs.newEntryPreamble(name); err != nil {
		return SymlinkReply{}, err
	}

	reply, err := fs.callDaemon(ctx, wire.OpSymlink, parent.ID(), len(name)+len(target), struct {
		Name   string
		Target string
	}{name, target})
	if err != nil {
		return SymlinkReply{}, err
	}
	er, ok := reply.(wire.EntryReply)
	if !ok {
		return SymlinkReply{}, protocolErr(wire.OpSymlink)
	}

	fs.invalidateLocked(parent)
	child := fs.instantiateChild(parent, name, er)
	return SymlinkReply{Child: child}, nil
}

// Readlink issues READLINK and, when the session has JAIL_SYMLINKS set and
// the returned target is absolute, prepends the mountpoint to it so the
// host follows the link inside the mount rather than off it (spec.md §4.4,
// §4.5, original_source/fuse_vnops.c's FSESS_JAIL_SYMLINKS).
func (fs *FS) Readlink(ctx context.Context, node *Node) (string, error) {
	if err := fs.preamble(); err != nil {
		return "", err
	}

	reply, err := fs.callDaemon(ctx, wire.OpReadlink, node.ID(), 0, nil)
	if err != nil {
		return "", err
	}
	target, ok := reply.(string)
	if !ok {
		return "", protocolErr(wire.OpReadlink)
	}

	fs.Session.Lock()
	jail := fs.Session.Flags.JailSymlinks
	mountpoint := fs.Session.Mountpoint
	fs.Session.Unlock()

	return pathutil.JailSymlinkTarget(target, mountpoint, jail), nil
}

// MknodReply mirrors MkdirReply's shape.
type MknodReply struct {
	Child *Node
}

// Mknod builds a MKNOD request directly (mknod(2) specifying a device
// node, as opposed to Create's internal create->mknod fallback for regular
// files) and invalidates the parent's attrs on success.
func (fs *FS) Mknod(ctx context.Context, parent *Node, name string, mode os.FileMode, rdev uint32) (MknodReply, error) {
	if err := fs.newEntryPreamble(name); err != nil {
		return MknodReply{}, err
	}

	reply, err := fs.callDaemon(ctx, wire.OpMknod, parent.ID(), len(name), struct {
		Name string
		Mode os.FileMode
		Rdev uint32
	}{name, mode, rdev})
	if err != nil {
		return MknodReply{}, err
	}
	er, ok := reply.(wire.EntryReply)
	if !ok {
		return MknodReply{}, protocolErr(wire.OpMknod)
	}

	fs.invalidateLocked(parent)
	child := fs.instantiateChild(parent, name, er)
	return MknodReply{Child: child}, nil
}

// LinkMax is the platform's maximum hard-link count, checked before
// dispatch so an over-limit link never reaches the daemon (spec.md §8
// "link at link-count == max returns EMLINK without dispatch").
const LinkMax = 32767

// Link creates a new name for an existing node. Cross-mount links are
// rejected with EXDEV; a node already at LinkMax is rejected with EMLINK
// without dispatching. On success the new name is a second daemon-held
// reference, so Nlookup is incremented, and both the target's and parent's
// attrs are invalidated (spec.md §4.6 "link").
func (fs *FS) Link(ctx context.Context, parent, target *Node, name string, crossMount bool) error {
	if err := fs.newEntryPreamble(name); err != nil {
		return err
	}
	if crossMount {
		return errnoErr(syscall.EXDEV)
	}

	fs.Session.Lock()
	nlink := target.Attr.Load().Nlink
	fs.Session.Unlock()
	if nlink >= LinkMax {
		return errnoErr(syscall.EMLINK)
	}

	_, err := fs.callDaemon(ctx, wire.OpLink, target.ID(), len(name), struct {
		Parent wire.NodeID
		Name   string
	}{parent.ID(), name})
	if err != nil {
		return err
	}

	fs.Session.Lock()
	target.Nlookup++
	target.Attr.Invalidate()
	parent.Attr.Invalidate()
	fs.Session.Unlock()

	if fs.NameCache != nil {
		fs.NameCache.Enter(parent.ID(), name, target.ID())
	}
	return nil
}

// Rename issues RENAME, then invalidates both parents' attrs and purges
// the source name (always first, per spec.md §4.6 "rename": "Source
// vnode's name cache is always purged first to avoid stale hits
// mid-operation") and, for a directory move, the destination parent too.
func (fs *FS) Rename(ctx context.Context, oldParent *Node, oldName string, newParent *Node, newName string, movingDir bool) error {
	if err := fs.preamble(); err != nil {
		return err
	}
	if err := fs.checkName(newName); err != nil {
		return err
	}

	fs.purgeName(oldParent.ID(), oldName)

	_, err := fs.callDaemon(ctx, wire.OpRename, oldParent.ID(), len(oldName)+len(newName), struct {
		OldName  string
		NewParent wire.NodeID
		NewName  string
	}{oldName, newParent.ID(), newName})
	if err != nil {
		return err
	}

	fs.Session.Lock()
	oldParent.Attr.Invalidate()
	newParent.Attr.Invalidate()
	fs.Session.Unlock()

	fs.purgeName(newParent.ID(), newName)
	if movingDir {
		fs.purgeNode(newParent.ID())
	}
	return nil
}

// RemoveRequest carries the arguments Remove (unlink) needs.
type RemoveRequest struct {
	Name         string
	IsDir        bool
	NoDeleteBusy bool
	Busy         bool
}

// Remove rejects a directory target with EPERM (use Rmdir for that),
// honors no-delete-busy, purges the name cache before and after the call,
// and invalidates the parent's attrs on success (spec.md §4.6
// "remove/rmdir").
func (fs *FS) Remove(ctx context.Context, parent *Node, req RemoveRequest) error {
	if err := fs.preamble(); err != nil {
		return err
	}
	if req.IsDir {
		return errnoErr(syscall.EPERM)
	}
	if req.NoDeleteBusy && req.Busy {
		return errnoErr(syscall.EBUSY)
	}

	fs.purgeName(parent.ID(), req.Name)

	_, err := fs.callDaemon(ctx, wire.OpUnlink, parent.ID(), len(req.Name), req.Name)
	if err != nil {
		return err
	}

	fs.purgeName(parent.ID(), req.Name)
	fs.invalidateLocked(parent)
	return nil
}
