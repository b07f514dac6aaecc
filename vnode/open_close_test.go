package vnode_test

import (
	"context"
	"errors"
	"testing"

	"github.com/coremount/vnodefs/session"
	"github.com/coremount/vnodefs/vnode"
	"github.com/coremount/vnodefs/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCloseReleasesHandleEvenWhenFlushFails regression-tests a leak where a
// transient FLUSH failure used to abort Close before the handle slot was
// decremented and RELEASE sent, leaking the daemon handle forever.
func TestCloseReleasesHandleEvenWhenFlushFails(t *testing.T) {
	h := newHarness(t, session.Flags{})
	child := h.lookupChild(t, h.Root, "f", 0644)

	h.Transport.Handle(wire.OpOpen, func(ctx context.Context, node wire.NodeID, req any) (any, error) {
		return wire.OpenReply{Handle: 1}, nil
	})
	_, err := h.FS.Open(context.Background(), child, vnode.OpenRequest{Read: true})
	require.NoError(t, err)

	h.Transport.Handle(wire.OpFlush, func(ctx context.Context, node wire.NodeID, req any) (any, error) {
		return nil, errors.New("transient daemon error")
	})
	var released bool
	h.Transport.Handle(wire.OpRelease, func(ctx context.Context, node wire.NodeID, req any) (any, error) {
		released = true
		return nil, nil
	})

	err = h.FS.Close(context.Background(), child, vnode.CloseRequest{Class: wire.ClassRDONLY})
	require.NoError(t, err)
	assert.True(t, released, "RELEASE must still be sent after a FLUSH failure")
}
