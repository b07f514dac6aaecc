// attr.go implements Getattr/Setattr (spec.md §4.6 "getattr"/"setattr",
// component C2's load/refresh contract), generalized from fs/fs.go's
// GetInodeAttributes/SetInodeAttributes (cache-or-dispatch over a GCS
// object's stat fields) to the wire protocol's GETATTR/SETATTR round trip.
package vnode

import (
	"context"
	"os"
	"syscall"
	"time"

	"github.com/coremount/vnodefs/wire"
)

// GetattrReply is the fs.Getattr result.
type GetattrReply struct {
	Attr wire.Attr
}

// Getattr serves cached attributes when fresh, else dispatches GETATTR.
// Type-change detection purges the name cache and returns EIO (spec.md
// §4.6 "getattr": "Type-change purge + EIO"). ENOENT on a live vnode also
// purges the name cache. A dead session talking about the root vnode, or a
// root GETATTR that finds the transport dead, fabricates attributes from the
// session's daemon credentials and S_IRWXU rather than failing (spec.md
// §4.1 "ENOTCONN ... fabricate").
func (fs *FS) Getattr(ctx context.Context, id wire.NodeID) (GetattrReply, error) {
	fs.Session.Lock()
	dead := fs.Session.Dead()
	if dead && id != wire.RootNodeID {
		fs.Session.Unlock()
		return GetattrReply{}, deadErr()
	}

	node, err := fs.lookupNode(id)
	if err != nil {
		fs.Session.Unlock()
		if dead && id == wire.RootNodeID {
			return GetattrReply{Attr: fs.fabricateRootAttr()}, nil
		}
		return GetattrReply{}, err
	}

	if dead {
		fs.Session.Unlock()
		return GetattrReply{Attr: fs.fabricateRootAttr()}, nil
	}

	if node.Attr.Fresh() {
		attr := node.Attr.Load()
		fs.Session.Unlock()
		return GetattrReply{Attr: attr}, nil
	}
	fs.Session.Unlock()

	reply, err := fs.refresh(ctx, node)
	if ve, ok := err.(*Error); ok && ve.Kind == KindDead && id == wire.RootNodeID {
		return GetattrReply{Attr: fs.fabricateRootAttr()}, nil
	}
	return reply, err
}

// fabricateRootAttr builds the all-owner, all-permission directory attrs a
// dead session still answers for the root vnode (spec.md §4.1).
func (fs *FS) fabricateRootAttr() wire.Attr {
	return wire.Attr{
		Mode:  os.ModeDir | 0700, // S_IRWXU
		Uid:   fs.Creds.UID,
		Gid:   fs.Creds.GID,
		Nlink: 1,
	}
}

// refresh issues GETATTR, validates the reply, and stores it (component
// C2's refresh). node.Attr.Fresh() must already have been checked false by
// the caller while holding the session lock; refresh re-validates nothing
// about staleness itself, only protocol sanity.
func (fs *FS) refresh(ctx context.Context, node *Node) (GetattrReply, error) {
	reply, err := fs.callDaemon(ctx, wire.OpGetattr, node.ID(), 0, nil)
	if err != nil {
		if ve, ok := err.(*Error); ok && ve.Kind == KindErrno && ve.Errno == syscall.ENOENT {
			fs.purgeNode(node.ID())
		}
		return GetattrReply{}, err
	}

	gr, ok := reply.(wire.GetattrReply)
	if !ok {
		return GetattrReply{}, protocolErr(wire.OpGetattr)
	}

	fs.Session.Lock()
	sane, typeChanged := node.Attr.CheckAndStore(gr.Attr, gr.AttrValid)
	if !sane {
		fs.Session.Unlock()
		return GetattrReply{}, errnoErr(syscall.EIO)
	}
	node.noteType(gr.Attr.Mode)

	// "ATTR_FUDGE": only direct-I/O regular files trust the reply's size
	// unconditionally, since they have no page cache independently tracking
	// it (spec.md §9 Open Question, SPEC_FULL.md §9: kept).
	if node.Flags&FlagDirectIO != 0 && node.IsRegular() {
		node.Filesize = int64(gr.Attr.Size)
	}
	fs.Session.Unlock()

	if typeChanged {
		fs.purgeNode(node.ID())
		return GetattrReply{}, errnoErr(syscall.EIO)
	}

	return GetattrReply{Attr: gr.Attr}, nil
}

// SetattrRequest carries the VFS attribute-change vector translated into
// protocol SETATTR fields (spec.md §4.6 "setattr").
type SetattrRequest struct {
	Mode  *os.FileMode
	Uid   *uint32
	Gid   *uint32
	Size  *uint64
	Atime *time.Time
	Mtime *time.Time
}

// Setattr translates and dispatches a SETATTR. Size changes on a directory
// are rejected (EISDIR); any change at all on a read-only mount is rejected
// (EROFS, spec.md §4.6 "setattr"), checked against session.Flags.ReadOnly
// right after the liveness check and node lookup, before the directory
// check and any dispatch. On a successful size change, node.Filesize and the
// page cache's idea of size are both updated; attrs are invalidated.
func (fs *FS) Setattr(ctx context.Context, id wire.NodeID, req SetattrRequest) (GetattrReply, error) {
	if err := fs.preamble(); err != nil {
		return GetattrReply{}, err
	}

	fs.Session.Lock()
	readOnly := fs.Session.Flags.ReadOnly
	node, err := fs.lookupNode(id)
	if err != nil {
		fs.Session.Unlock()
		return GetattrReply{}, err
	}

	if readOnly {
		fs.Session.Unlock()
		return GetattrReply{}, errnoErr(syscall.EROFS)
	}

	if req.Size != nil && node.IsDir() {
		fs.Session.Unlock()
		return GetattrReply{}, errnoErr(syscall.EISDIR)
	}
	fs.Session.Unlock()

	reply, err := fs.callDaemon(ctx, wire.OpSetattr, node.ID(), 0, req)
	if err != nil {
		return GetattrReply{}, err
	}

	gr, ok := reply.(wire.GetattrReply)
	if !ok {
		return GetattrReply{}, protocolErr(wire.OpSetattr)
	}

	fs.Session.Lock()
	sane, typeChanged := node.Attr.CheckAndStore(gr.Attr, gr.AttrValid)
	if !sane {
		fs.Session.Unlock()
		return GetattrReply{}, errnoErr(syscall.EIO)
	}
	node.noteType(gr.Attr.Mode)

	if req.Size != nil {
		node.Filesize = int64(*req.Size)
	}
	fs.Session.Unlock()

	if req.Size != nil && fs.PageCache != nil {
		if err := fs.PageCache.SetSize(node.ID(), *req.Size); err != nil {
			return GetattrReply{}, errnoErr(syscall.EIO)
		}
	}

	if typeChanged {
		fs.purgeNode(node.ID())
		return GetattrReply{}, errnoErr(syscall.EAGAIN)
	}

	return GetattrReply{Attr: gr.Attr}, nil
}
