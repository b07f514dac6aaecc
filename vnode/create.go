// create.go implements Create (spec.md §4.2 "Create fast path", §4.6
// "create"), generalized from fs/fs.go's CreateFile (GCS object-creation
// preconditions) to the CREATE/MKNOD fallback pair original_source/
// fuse_vnops.c's fuse_vnop_create negotiates against a legacy daemon.
package vnode

import (
	"context"
	"os"
	"syscall"

	"github.com/coremount/vnodefs/wire"
)

// CreateRequest carries a create(2)-style request.
type CreateRequest struct {
	Name  string
	Mode  os.FileMode
	Flags int
}

// CreateReply is the fs.Create result.
type CreateReply struct {
	Child  *Node
	Class  wire.AccessClass
}

// Create tries CREATE when the daemon is believed to support it and the
// target is a regular file; on ENOSYS the capability bit is cleared (one
// way, spec.md §4.1) and the call falls back to MKNOD, which this layer
// must then instantiate the vnode for itself via a subsequent lookup
// semantics (no handle is preinstalled on the MKNOD path). On a vnode
// instantiation failure, a compensating RELEASE (CREATE path) or FORGET
// (MKNOD path) is sent so the daemon's reference count does not leak
// (spec.md §4.2). On success down either path, the new child is entered
// positively and parent's negative name-cache entries are purged (spec.md
// §4.6 "create").
func (fs *FS) Create(ctx context.Context, parent *Node, req CreateRequest) (CreateReply, error) {
	if err := fs.preamble(); err != nil {
		return CreateReply{}, err
	}
	if err := fs.checkName(req.Name); err != nil {
		return CreateReply{}, err
	}

	fs.Session.Lock()
	hasCreate := fs.Session.Capabilities().Has(wire.OpCreate)
	fs.Session.Unlock()

	if hasCreate {
		reply, err := fs.callDaemon(ctx, wire.OpCreate, parent.ID(), len(req.Name), struct {
			Name  string
			Mode  os.FileMode
			Flags int
		}{req.Name, req.Mode, req.Flags})
		if err == nil {
			cr, ok := reply.(wire.CreateReply)
			if !ok {
				return CreateReply{}, protocolErr(wire.OpCreate)
			}
			if !cr.Entry.Attr.Mode.IsRegular() {
				// Compensate: the daemon created something, but not what we
				// asked for; release the preinstalled handle and surface EIO.
				_, _ = fs.callDaemon(ctx, wire.OpRelease, cr.Entry.NodeID, 0, cr.Open.Handle)
				return CreateReply{}, errnoErr(syscall.EIO)
			}

			child := fs.instantiateChild(parent, req.Name, cr.Entry)
			fs.Session.Lock()
			child.FUFH.InstallCreateHandle(cr.Open)
			fs.Session.Unlock()

			if fs.NameCache != nil {
				fs.NameCache.Enter(parent.ID(), req.Name, child.ID())
				fs.NameCache.PurgeNegatives(parent.ID())
			}
			return CreateReply{Child: child, Class: wire.ClassRDWR}, nil
		}

		ve, ok := err.(*Error)
		if !ok || ve.Kind != KindNotImplemented {
			return CreateReply{}, err
		}
		// Falls through to MKNOD; the capability bit was already cleared by
		// session.Dispatch's classifyTransportError.
	}

	reply, err := fs.callDaemon(ctx, wire.OpMknod, parent.ID(), len(req.Name), struct {
		Name string
		Mode os.FileMode
	}{req.Name, os.ModePerm&req.Mode | 0100000}) // S_IFREG
	if err != nil {
		return CreateReply{}, err
	}

	er, ok := reply.(wire.EntryReply)
	if !ok {
		return CreateReply{}, protocolErr(wire.OpMknod)
	}
	if !er.Attr.Mode.IsRegular() {
		fs.forgetCompensate(ctx, er.NodeID, 1)
		return CreateReply{}, errnoErr(syscall.EIO)
	}

	child := fs.instantiateChild(parent, req.Name, er)
	if fs.NameCache != nil {
		fs.NameCache.Enter(parent.ID(), req.Name, child.ID())
		fs.NameCache.PurgeNegatives(parent.ID())
	}
	return CreateReply{Child: child}, nil
}

// forgetCompensate sends a FORGET(count) for a node the layer decided not
// to keep (e.g. a MKNOD reply that turned out not to be a regular file),
// discharging the daemon-side reference the MKNOD itself granted (spec.md
// §4.2 "a matching RELEASE must be sent ... or FORGET if the fallback MKNOD
// path was taken").
func (fs *FS) forgetCompensate(ctx context.Context, node wire.NodeID, count uint64) {
	_, _ = fs.callDaemon(ctx, wire.OpForget, node, 0, count)
}
