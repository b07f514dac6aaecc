// open.go implements Open, Close, Mmap and Mnomap (spec.md §4.6 "open",
// "close", "mmap/mnomap"), built directly on the handle.Table (component
// C1) this package's Node embeds.
package vnode

import (
	"context"
	"syscall"

	"github.com/coremount/vnodefs/handle"
	"github.com/coremount/vnodefs/internal/logger"
	"github.com/coremount/vnodefs/wire"
)

// OpenRequest names the open(2)-style arguments Open needs: whether the
// target is a directory (selects OPENDIR vs OPEN), the read/write bits for
// class selection, and raw open flags to forward to the daemon.
type OpenRequest struct {
	IsDir bool
	Read  bool
	Write bool
	Flags int
}

// OpenReply is the fs.Open result.
type OpenReply struct {
	Class wire.AccessClass
}

func (fs *FS) openOp(isDir bool) wire.Op {
	if isDir {
		return wire.OpOpendir
	}
	return wire.OpOpen
}

func (fs *FS) releaseOp(isDir bool) wire.Op {
	if isDir {
		return wire.OpReleasedir
	}
	return wire.OpRelease
}

// Open selects an access class from req and installs or reuses a handle
// slot for it. When the daemon's OPEN reply carries DIRECT_IO, the page
// cache is flushed and invalidated, readahead/caching is disabled for the
// node (recorded as FlagDirectIO), and the session's NO_SYNCWRITES bit is
// cleared so writes start syncing again (spec.md §4.6 "open"). PURGE_UBC
// similarly flushes and invalidates; PURGE_ATTR additionally invalidates
// and refreshes attrs, updating Filesize and the page cache's size.
// KEEP_CACHE suppresses the flush/invalidate entirely
// (SPEC_FULL.md §6's fuse_vnops.c-sourced addition).
func (fs *FS) Open(ctx context.Context, node *Node, req OpenRequest) (OpenReply, error) {
	if err := fs.preamble(); err != nil {
		return OpenReply{}, err
	}

	class := handle.ClassForOpenFlags(req.Read, req.Write)

	fs.Session.Lock()
	var replyFlags wire.OpenReplyFlag
	err := node.FUFH.Get(ctx, fs.Session.Transport, node.ID(), class, req.Flags,
		func(ctx context.Context, tr wire.Transport, n wire.NodeID, c wire.AccessClass, flags int) (wire.OpenReply, error) {
			reply, err := fs.dispatchUnderLock(ctx, fs.openOp(req.IsDir), n, 0, struct {
				Class wire.AccessClass
				Flags int
			}{c, flags})
			if err != nil {
				return wire.OpenReply{}, err
			}
			or, ok := reply.(wire.OpenReply)
			if !ok {
				return wire.OpenReply{}, protocolErr(fs.openOp(req.IsDir))
			}
			replyFlags = or.Flags
			return or, nil
		})
	fs.Session.Unlock()
	if err != nil {
		return OpenReply{}, err
	}

	if err := fs.applyOpenReplyFlags(node, replyFlags); err != nil {
		return OpenReply{}, err
	}

	return OpenReply{Class: class}, nil
}

func (fs *FS) applyOpenReplyFlags(node *Node, flags wire.OpenReplyFlag) error {
	if flags&wire.FlagNonSeekable != 0 {
		fs.Session.Lock()
		node.Flags |= FlagNonSeekable
		node.nextOffset = 0
		fs.Session.Unlock()
	}

	if flags&wire.FlagDirectIO != 0 {
		if fs.PageCache != nil {
			if err := fs.PageCache.FlushAndInvalidate(node.ID()); err != nil {
				return errnoErr(syscall.EIO)
			}
		}
		fs.Session.Lock()
		node.Flags |= FlagDirectIO
		fs.Session.Flags.NoSyncWrites = false
		fs.Session.Unlock()
		return nil
	}

	if flags&wire.FlagKeepCache != 0 {
		return nil
	}

	if flags&wire.FlagPurgeUBC != 0 {
		if fs.PageCache != nil {
			if err := fs.PageCache.FlushAndInvalidate(node.ID()); err != nil {
				return errnoErr(syscall.EIO)
			}
		}
		if flags&wire.FlagPurgeAttr != 0 {
			fs.Session.Lock()
			node.Attr.Invalidate()
			fs.Session.Unlock()
			if _, err := fs.refresh(context.Background(), node); err != nil {
				return err
			}
			fs.Session.Lock()
			size := node.Filesize
			fs.Session.Unlock()
			if fs.PageCache != nil {
				if err := fs.PageCache.SetSize(node.ID(), uint64(size)); err != nil {
					return errnoErr(syscall.EIO)
				}
			}
		}
	}
	return nil
}

// CloseRequest carries the arguments Close needs to decide whether a sync
// push is required before releasing the handle.
type CloseRequest struct {
	IsDir   bool
	Class   wire.AccessClass
	Dirty   bool
	NoDelay bool
}

// Close decrements the handle's reference count, pushing dirty pages
// synchronously first unless NO_SYNCONCLOSE is set, sending FLUSH if the
// daemon implements it, and releasing the daemon handle once the count
// reaches zero (spec.md §4.6 "close"). A close carrying the host's
// "no-delay" flag is a no-op, and close never fails on a dead session
// (spec.md §4.6 preamble exceptions).
func (fs *FS) Close(ctx context.Context, node *Node, req CloseRequest) error {
	if req.NoDelay {
		return nil
	}

	fs.Session.Lock()
	dead := fs.Session.Dead()
	noSyncClose := fs.Session.Flags.NoSyncOnClose
	fs.Session.Unlock()
	if dead {
		return nil
	}

	if !req.IsDir && req.Dirty && !noSyncClose && fs.PageCache != nil {
		if err := fs.PageCache.FlushAndInvalidate(node.ID()); err != nil {
			return errnoErr(syscall.EIO)
		}
	}

	fs.Session.Lock()
	hasFlush := fs.Session.Capabilities().Has(wire.OpFlush)
	fs.Session.Unlock()
	// A FLUSH failure is logged but must not abort close before the handle
	// slot is decremented and RELEASE sent below — otherwise a transient
	// FLUSH error leaks the daemon handle forever (spec.md §4.2 "put": close
	// never fails on a dead session or mid-teardown; RELEASE must still go
	// out).
	if hasFlush && !req.IsDir {
		if _, err := fs.callDaemon(ctx, wire.OpFlush, node.ID(), 0, nil); err != nil {
			logger.Warnf("vnode: FLUSH on node %v failed: %v", node.ID(), err)
		}
	}

	fs.Session.Lock()
	hitZero, id := node.FUFH.Dec(req.Class)
	fs.Session.Unlock()
	if !hitZero {
		return nil
	}

	// Errors are logged but do not fail the caller path (spec.md §4.2
	// "put", carried over to close's RELEASE send).
	if _, err := fs.callDaemon(ctx, fs.releaseOp(req.IsDir), node.ID(), 0, id); err != nil {
		logger.Warnf("vnode: %v on node %v failed: %v", fs.releaseOp(req.IsDir), node.ID(), err)
	}
	return nil
}

// Mmap acquires a handle of the class derived from the requested protection
// bits, with the same EACCES->RDONLY fallback Open's class selection would
// need for a plain open (spec.md §4.2 "mmap fallback", §4.6 "mmap").
func (fs *FS) Mmap(ctx context.Context, node *Node, prot int) (OpenReply, error) {
	if err := fs.preamble(); err != nil {
		return OpenReply{}, err
	}

	class := handle.ClassForProt(prot)

	fs.Session.Lock()
	got, err := node.FUFH.GetWithMmapFallback(ctx, fs.Session.Transport, node.ID(), class, 0,
		func(ctx context.Context, tr wire.Transport, n wire.NodeID, c wire.AccessClass, flags int) (wire.OpenReply, error) {
			reply, err := fs.dispatchUnderLock(ctx, wire.OpOpen, n, 0, struct {
				Class wire.AccessClass
				Flags int
			}{c, flags})
			if err != nil {
				return wire.OpenReply{}, err
			}
			or, ok := reply.(wire.OpenReply)
			if !ok {
				return wire.OpenReply{}, protocolErr(wire.OpOpen)
			}
			return or, nil
		})
	fs.Session.Unlock()
	if err != nil {
		return OpenReply{}, err
	}
	return OpenReply{Class: got}, nil
}

// Mnomap is a no-op: handle cleanup for a mapping is deferred to
// Inactive/Reclaim, matching spec.md §4.6 "mmap/mnomap".
func (fs *FS) Mnomap(node *Node) error { return nil }
