package vnode_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/coremount/vnodefs/attrcache"
	"github.com/coremount/vnodefs/namecache"
	"github.com/coremount/vnodefs/pagecache"
	"github.com/coremount/vnodefs/session"
	"github.com/coremount/vnodefs/vnode"
	"github.com/coremount/vnodefs/wire"
	"github.com/coremount/vnodefs/wire/faketransport"
	"github.com/jacobsa/timeutil"
	"github.com/stretchr/testify/require"
)

// testHarness bundles the pieces every vnode test constructs a session
// around: a fake transport the test installs handlers on, the session/FS
// pair under test, and the name/page cache fakes for asserting
// invalidation behavior without a real kernel or daemon.
type testHarness struct {
	Transport *faketransport.Transport
	Clock     *timeutil.SimulatedClock
	NameCache *namecache.MemCache
	PageCache *pagecache.Fake
	Session   *session.Session
	FS        *vnode.FS
	Root      *vnode.Node
}

func newHarness(t *testing.T, flags session.Flags) *testHarness {
	t.Helper()

	tr := faketransport.New()
	clock := &timeutil.SimulatedClock{}
	nc := namecache.NewMemCache()
	pc := pagecache.NewFake()
	s := session.New(tr, clock, "/mnt/test", flags)
	fs := vnode.New(s, nc, pc, vnode.Credentials{UID: 501, GID: 20, PID: 1})
	root := fs.InitRoot()

	return &testHarness{
		Transport: tr,
		Clock:     clock,
		NameCache: nc,
		PageCache: pc,
		Session:   s,
		FS:        fs,
		Root:      root,
	}
}

// handleOnce installs a handler for op that answers every call with reply
// and err, replacing any handler already installed for op.
func (h *testHarness) handleOnce(op wire.Op, reply any, err error) {
	h.Transport.Handle(op, func(ctx context.Context, node wire.NodeID, req any) (any, error) {
		return reply, err
	})
}

// lookupChild drives a LOOKUP round trip through fs.Lookup so the returned
// node carries a correctly-noted type (Node.noteType is only ever called
// from within the vnode package itself), mirroring how every real node
// enters the registry.
func (h *testHarness) lookupChild(t *testing.T, parent *vnode.Node, name string, mode os.FileMode) *vnode.Node {
	t.Helper()

	h.Transport.Handle(wire.OpLookup, func(ctx context.Context, node wire.NodeID, req any) (any, error) {
		h.Session.Lock()
		id := h.Session.AllocateNodeID()
		h.Session.Unlock()
		return wire.EntryReply{
			NodeID:     id,
			EntryValid: time.Minute,
			AttrValid:  time.Minute,
			Attr:       wire.Attr{Mode: mode, Size: 0, Nlink: 1},
		}, nil
	})

	result, err := h.FS.Lookup(context.Background(), parent, name, vnode.LookupRequest{})
	require.NoError(t, err)
	require.NotNil(t, result.Child)
	return result.Child
}

// newAttrCache mints an attribute cache driven by the harness's clock,
// mirroring the package's own newAttrCache helper for tests that need one
// directly (e.g. constructing a node without a LOOKUP round trip).
func newAttrCache(h *testHarness) *attrcache.Cache {
	return attrcache.New(h.Session.Clock)
}
