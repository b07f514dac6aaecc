// dir.go implements Readdir, Mkdir and Rmdir (spec.md §4.6), generalized
// from fs/dir_handle.go's continuation-token readdir loop (here, the
// daemon's own READDIR stream already carries an Eof flag, so no
// token-threading is needed) and fs/fs.go's MkDir/RmDir.
package vnode

import (
	"context"
	"syscall"

	"github.com/coremount/vnodefs/pathutil"
	"github.com/coremount/vnodefs/wire"
)

// ReaddirReply is the fs.Readdir result.
type ReaddirReply struct {
	Entries []wire.Dirent
	Eof     bool
}

// Readdir requires a RDONLY directory handle, acquiring one (and releasing
// it before returning) if the node has none open already. A minSpace of
// zero or less is rejected with EINVAL; a positive minSpace is not compared
// against the size of a dirent. Readdir takes no flags argument, and offset
// is forwarded to the daemon unchanged, not rejected. Attrs are invalidated on return
// since READDIR may have changed the directory's mtime on the daemon side.
func (fs *FS) Readdir(ctx context.Context, node *Node, offset uint64, minSpace int) (ReaddirReply, error) {
	if err := fs.preamble(); err != nil {
		return ReaddirReply{}, err
	}
	if minSpace <= 0 {
		return ReaddirReply{}, errnoErr(syscall.EINVAL)
	}

	fs.Session.Lock()
	borrowed := !node.FUFH.Slot(wire.ClassRDONLY).Valid()
	fs.Session.Unlock()

	if borrowed {
		if _, err := fs.Open(ctx, node, OpenRequest{IsDir: true, Read: true}); err != nil {
			return ReaddirReply{}, err
		}
	}

	handleID, err := fs.pickHandle(node, wire.ClassRDONLY)
	if err != nil {
		if borrowed {
			_ = fs.Close(ctx, node, CloseRequest{IsDir: true, Class: wire.ClassRDONLY})
		}
		return ReaddirReply{}, err
	}

	reply, err := fs.callDaemon(ctx, wire.OpReaddir, node.ID(), 0, struct {
		Handle wire.HandleID
		Offset uint64
	}{handleID, offset})

	if borrowed {
		_ = fs.Close(ctx, node, CloseRequest{IsDir: true, Class: wire.ClassRDONLY})
	}
	fs.invalidateLocked(node)

	if err != nil {
		return ReaddirReply{}, err
	}
	rr, ok := reply.(wire.ReaddirReply)
	if !ok {
		return ReaddirReply{}, protocolErr(wire.OpReaddir)
	}
	return ReaddirReply{Entries: rr.Entries, Eof: rr.Eof}, nil
}

func (fs *FS) invalidateLocked(node *Node) {
	fs.Session.Lock()
	node.Attr.Invalidate()
	fs.Session.Unlock()
}

// MkdirRequest/MkdirReply mirror Create's shapes for the MKDIR wire op.
type MkdirRequest struct {
	Name string
	Mode uint32
}

type MkdirReply struct {
	Child *Node
}

// Mkdir dispatches MKDIR and invalidates the parent's attrs on success
// (spec.md §4.6 "symlink/mknod/mkdir").
func (fs *FS) Mkdir(ctx context.Context, parent *Node, req MkdirRequest) (MkdirReply, error) {
	if err := fs.newEntryPreamble(req.Name); err != nil {
		return MkdirReply{}, err
	}

	reply, err := fs.callDaemon(ctx, wire.OpMkdir, parent.ID(), len(req.Name), req)
	if err != nil {
		return MkdirReply{}, err
	}
	er, ok := reply.(wire.EntryReply)
	if !ok {
		return MkdirReply{}, protocolErr(wire.OpMkdir)
	}

	fs.invalidateLocked(parent)
	child := fs.instantiateChild(parent, req.Name, er)
	if fs.NameCache != nil {
		fs.NameCache.Enter(parent.ID(), req.Name, child.ID())
	}
	return MkdirReply{Child: child}, nil
}

// RmdirRequest carries the host's "no-delete-busy" mount option and whether
// the vnode is currently in use.
type RmdirRequest struct {
	Name       string
	NoDeleteBusy bool
	Busy       bool
}

// Rmdir purges the name cache before and after the call, honors
// no-delete-busy, and invalidates the parent's attrs on success (spec.md
// §4.6 "remove/rmdir").
func (fs *FS) Rmdir(ctx context.Context, parent *Node, req RmdirRequest) error {
	if err := fs.preamble(); err != nil {
		return err
	}
	if req.NoDeleteBusy && req.Busy {
		return errnoErr(syscall.EBUSY)
	}

	fs.purgeName(parent.ID(), req.Name)

	_, err := fs.callDaemon(ctx, wire.OpRmdir, parent.ID(), len(req.Name), req.Name)
	if err != nil {
		return err
	}

	fs.purgeName(parent.ID(), req.Name)
	fs.invalidateLocked(parent)
	return nil
}

// newEntryPreamble runs the liveness/name-length/Apple-double checks shared
// by Mkdir/Mknod/Symlink.
func (fs *FS) newEntryPreamble(name string) error {
	if err := fs.preamble(); err != nil {
		return err
	}
	return fs.checkName(name)
}

func (fs *FS) checkName(name string) error {
	if len(name) > pathutil.MaxNameLen {
		return errnoErr(syscall.ENAMETOOLONG)
	}
	if err := pathutil.RejectAppleDouble(name, fs.sessionRejectAppleDouble()); err != nil {
		return errnoErr(err.(syscall.Errno))
	}
	return nil
}
