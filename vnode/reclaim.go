// reclaim.go implements Reclaim and Inactive (component C9, spec.md §4.6
// "reclaim"/"inactive", §4.9), generalized from fs/fs.go's ForgetInode
// (which has no handle table to drain, since GCS objects have no daemon
// file-handle concept) to the fufh[3]/nlookup discharge spec.md §3
// describes.
package vnode

import (
	"context"

	"github.com/coremount/vnodefs/internal/logger"
	"github.com/coremount/vnodefs/wire"
)

// drainHandles resets every valid slot on node, releasing the session lock
// around each RELEASE/RELEASEDIR round trip (spec.md §4.6 "reclaim"/
// "inactive": "For every valid slot, reset count and put"). Reclaim and
// Inactive share this step; they differ only in what happens afterward.
func (fs *FS) drainHandles(ctx context.Context, node *Node, isDir bool) {
	fs.Session.Lock()
	var toRelease []wire.HandleID
	for _, class := range node.FUFH.AnyValid() {
		if wasValid, id := node.FUFH.Reset(class); wasValid {
			toRelease = append(toRelease, id)
		}
	}
	fs.Session.Unlock()

	for _, id := range toRelease {
		// Errors are logged but do not block reclaim/inactive from
		// completing (mirrors handle.Table.Put's "put" contract).
		if _, err := fs.callDaemon(ctx, fs.releaseOp(isDir), node.ID(), 0, id); err != nil {
			logger.Warnf("vnode: %v on node %v failed: %v", fs.releaseOp(isDir), node.ID(), err)
		}
	}
}

// Reclaim drains node's file handles, discharges any outstanding nlookup
// count with a single FORGET, then removes node from the session registry
// and clears its parent back-reference (spec.md §4.6 "reclaim", §8 scenario
// 6: "Reclaim emits exactly two RELEASE ... and one FORGET(count=3) ... in
// any order, then removes the node from the registry"). Reclaim never fails
// on a dead session (spec.md §4.6 preamble exceptions).
func (fs *FS) Reclaim(ctx context.Context, node *Node) {
	fs.drainHandles(ctx, node, node.IsDir())

	fs.Session.Lock()
	count := node.Nlookup
	node.Nlookup = 0
	fs.Session.Unlock()

	if count > 0 {
		_, _ = fs.callDaemon(ctx, wire.OpForget, node.ID(), 0, count)
	}

	fs.Session.Lock()
	fs.Session.Nodes().Remove(node.ID())
	node.parentRef = nil
	fs.Session.Unlock()

	if fs.NameCache != nil {
		fs.NameCache.Purge(node.ID())
	}
}

// Inactive drains node's file handles but leaves nlookup and the registry
// entry untouched, since the daemon may still hold references to the node
// (spec.md §4.6 "inactive": "Do not detach from registry").
func (fs *FS) Inactive(ctx context.Context, node *Node) {
	fs.drainHandles(ctx, node, node.IsDir())
}
