package vnode

import (
	"context"
	"os"
	"syscall"

	"github.com/coremount/vnodefs/attrcache"
	"github.com/coremount/vnodefs/namecache"
	"github.com/coremount/vnodefs/pagecache"
	"github.com/coremount/vnodefs/session"
	"github.com/coremount/vnodefs/wire"
)

// FS is the dispatch-table receiver: one instance per mounted session,
// publishing the vnode entry points named in spec.md §4.6 to the host VFS.
// Grounded on fs/fs.go's fileSystem struct, narrowed to the dependencies
// this layer actually needs (a session, a name cache, a page cache) instead
// of a GCS bucket and object-record indexes.
type FS struct {
	Session   *session.Session
	NameCache namecache.Cache
	PageCache pagecache.Host
	Creds     Credentials
}

// New returns an FS over an already-constructed session.
func New(s *session.Session, nc namecache.Cache, pc pagecache.Host, creds Credentials) *FS {
	return &FS{Session: s, NameCache: nc, PageCache: pc, Creds: creds}
}

// InitRoot installs the distinguished root node (wire.RootNodeID) into the
// session's registry. Called once, after a successful INIT handshake
// (spec.md §6 "INIT"), before any vnode op can be dispatched.
func (fs *FS) InitRoot() *Node {
	fs.Session.Lock()
	defer fs.Session.Unlock()

	root := NewNode(wire.RootNodeID, wire.RootNodeID, nil, newAttrCache(fs.Session))
	root.Name = "/"
	root.noteType(os.ModeDir)
	fs.Session.Nodes().Insert(root)
	fs.Session.MarkInited()
	return root
}

// preamble applies spec.md §4.6's shared preamble step 1: "If session/vnode
// dead, return ENXIO" — except for the handful of ops (close, inactive,
// reclaim, fsync, and access-on-root) that the spec calls out as always
// succeeding regardless of liveness. Callers needing one of those
// exceptions do not call preamble.
func (fs *FS) preamble() error {
	fs.Session.Lock()
	dead := fs.Session.Dead()
	fs.Session.Unlock()
	if dead {
		return deadErr()
	}
	return nil
}

// callDaemon is the single path through which an entry point talks to the
// daemon when it is NOT already holding the session lock — the common
// case, since most of C6 only needs the lock around node-state mutation
// immediately before/after the round trip, not around the round trip
// itself. session.Dispatch manages its own brief internal lock only for
// the dead-session check and otherwise blocks with no lock held, so this
// helper does not acquire fs.Session's lock at all (spec.md §5, §8
// testable property 5: "No dispatcher wait_answer is called with the
// session lock held"). The resulting error is translated through
// translateDispatchErr.
func (fs *FS) callDaemon(
	ctx context.Context,
	op wire.Op,
	node wire.NodeID,
	payloadSize int,
	req any,
) (any, error) {
	reply, err := fs.Session.Dispatch(ctx, op, node, payloadSize, req)
	if err != nil {
		return nil, translateDispatchErr(err)
	}
	return reply, nil
}

// dispatchUnderLock is for the rarer call sites that are already holding
// the session lock for an unrelated reason when they need to dispatch —
// specifically the openFunc callback handle.Table.Get invokes
// synchronously while Open/Mmap hold the lock to protect slot mutation. It
// releases the lock via session.Unlocked around the round trip, satisfying
// the same no-lock-held invariant callDaemon does, and reacquires before
// returning so the caller's subsequent slot mutation remains protected.
// Callers must already hold fs.Session's lock.
func (fs *FS) dispatchUnderLock(
	ctx context.Context,
	op wire.Op,
	node wire.NodeID,
	payloadSize int,
	req any,
) (reply any, err error) {
	var rawErr error
	fs.Session.Unlocked(func() {
		reply, rawErr = fs.Session.Dispatch(ctx, op, node, payloadSize, req)
	})
	if rawErr != nil {
		return nil, translateDispatchErr(rawErr)
	}
	return reply, nil
}

// lookupNode resolves id through the session registry, returning ESTALE if
// the id is unknown — the case of a request racing a concurrent reclaim.
func (fs *FS) lookupNode(id wire.NodeID) (*Node, error) {
	n, ok := fs.Session.Nodes().Lookup(id)
	if !ok {
		return nil, errnoErr(syscall.ESTALE)
	}
	node, ok := n.(*Node)
	if !ok {
		return nil, errnoErr(syscall.EIO)
	}
	return node, nil
}

// invalidate marks node's attribute cache stale, the step spec.md §3
// invariant 3 requires after every mutating op; callers hold fs.Session's
// lock.
func (fs *FS) invalidate(node *Node) {
	if node != nil {
		node.Attr.Invalidate()
	}
}

// purgeName drops the host name cache's entry for (parent,name), honoring
// session.Flags such a purge would otherwise skip (spec.md §4.4's NO_VNCACHE
// flag is enforced by the caller supplying a no-op namecache.Cache, not
// here).
func (fs *FS) purgeName(parent wire.NodeID, name string) {
	if fs.NameCache != nil {
		fs.NameCache.PurgeEntry(parent, name)
	}
}

func (fs *FS) purgeNode(node wire.NodeID) {
	if fs.NameCache != nil {
		fs.NameCache.Purge(node)
	}
}

// newAttrCache mints an attribute cache driven by the session's clock, for
// a freshly-instantiated node.
func newAttrCache(s *session.Session) *attrcache.Cache {
	return attrcache.New(s.Clock)
}
