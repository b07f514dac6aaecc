package vnode_test

import (
	"context"
	"os"
	"testing"

	"github.com/coremount/vnodefs/session"
	"github.com/coremount/vnodefs/vnode"
	"github.com/coremount/vnodefs/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUsesCreateOpWhenSupported(t *testing.T) {
	h := newHarness(t, session.Flags{})
	var mknodCalled bool
	h.Transport.Handle(wire.OpMknod, func(ctx context.Context, node wire.NodeID, req any) (any, error) {
		mknodCalled = true
		return wire.EntryReply{}, nil
	})
	h.Transport.Handle(wire.OpCreate, func(ctx context.Context, node wire.NodeID, req any) (any, error) {
		return wire.CreateReply{
			Entry: wire.EntryReply{NodeID: 50, Attr: wire.Attr{Mode: 0644, Nlink: 1}},
			Open:  wire.OpenReply{Handle: 9},
		}, nil
	})

	reply, err := h.FS.Create(context.Background(), h.Root, vnode.CreateRequest{Name: "f", Mode: 0644})
	require.NoError(t, err)
	assert.False(t, mknodCalled)
	assert.Equal(t, wire.ClassRDWR, reply.Class)
	require.NotNil(t, reply.Child)
	assert.True(t, reply.Child.FUFH.Slot(wire.ClassRDWR).Valid(), "CREATE fast path must preinstall the handle")
}

func TestCreateFallsBackToMknodOnNotImplemented(t *testing.T) {
	h := newHarness(t, session.Flags{})

	var mknodCalled bool
	h.Transport.Handle(wire.OpMknod, func(ctx context.Context, node wire.NodeID, req any) (any, error) {
		mknodCalled = true
		return wire.EntryReply{NodeID: 51, Attr: wire.Attr{Mode: 0644, Nlink: 1}}, nil
	})
	// No OpCreate handler installed: faketransport answers ErrNotImplemented.

	reply, err := h.FS.Create(context.Background(), h.Root, vnode.CreateRequest{Name: "g", Mode: 0644})
	require.NoError(t, err)
	assert.True(t, mknodCalled)
	require.NotNil(t, reply.Child)
	assert.False(t, h.Session.Capabilities().Has(wire.OpCreate), "a failed CREATE must clear the capability bit")
}

func TestCreateMknodFallbackCompensatesOnNonRegularResult(t *testing.T) {
	h := newHarness(t, session.Flags{})

	var forgetCount uint64
	h.Transport.Handle(wire.OpForget, func(ctx context.Context, node wire.NodeID, req any) (any, error) {
		forgetCount, _ = req.(uint64)
		return nil, nil
	})
	h.Transport.Handle(wire.OpMknod, func(ctx context.Context, node wire.NodeID, req any) (any, error) {
		return wire.EntryReply{NodeID: 52, Attr: wire.Attr{Mode: os.ModeDir | 0755}}, nil
	})

	_, err := h.FS.Create(context.Background(), h.Root, vnode.CreateRequest{Name: "h", Mode: 0644})
	require.Error(t, err)
	assert.Equal(t, uint64(1), forgetCount, "a non-regular MKNOD result must be compensated with FORGET(1)")
}
