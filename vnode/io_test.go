package vnode_test

import (
	"context"
	"errors"
	"syscall"
	"testing"

	"github.com/coremount/vnodefs/pagecache"
	"github.com/coremount/vnodefs/session"
	"github.com/coremount/vnodefs/vnode"
	"github.com/coremount/vnodefs/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingWritePageCache wraps a pagecache.Fake but fails every ClusterWrite,
// for exercising Write's optimistic-size-bump rollback path.
type failingWritePageCache struct {
	*pagecache.Fake
}

func (f failingWritePageCache) ClusterWrite(node wire.NodeID, offset int64, data []byte) (int, error) {
	return 0, errors.New("simulated IO_UNIT error")
}

func openNonSeekable(t *testing.T, h *testHarness, child *vnode.Node) {
	t.Helper()

	h.Transport.Handle(wire.OpOpen, func(ctx context.Context, node wire.NodeID, req any) (any, error) {
		return wire.OpenReply{Handle: 1, Flags: wire.FlagNonSeekable}, nil
	})
	_, err := h.FS.Open(context.Background(), child, vnode.OpenRequest{Read: true, Write: true})
	require.NoError(t, err)
}

func TestReadOnNonSeekableHandleRejectsNonMonotonicOffset(t *testing.T) {
	h := newHarness(t, session.Flags{})
	child := h.lookupChild(t, h.Root, "f", 0644)
	openNonSeekable(t, h, child)

	_, err := h.FS.PageCache.ClusterWrite(child.ID(), 0, []byte("hello world"))
	require.NoError(t, err)

	_, err = h.FS.Read(context.Background(), child, 5, 2)
	require.Error(t, err)
	assert.Equal(t, syscall.ESPIPE, vnode.ToErrno(err))
}

func TestReadOnNonSeekableHandleAdvancesOffsetSequentially(t *testing.T) {
	h := newHarness(t, session.Flags{})
	child := h.lookupChild(t, h.Root, "f", 0644)
	openNonSeekable(t, h, child)

	_, err := h.FS.PageCache.ClusterWrite(child.ID(), 0, []byte("hello world"))
	require.NoError(t, err)

	data, err := h.FS.Read(context.Background(), child, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	// The handle only ever saw 5 bytes go by, so the next call must start
	// at offset 5 to be accepted.
	data, err = h.FS.Read(context.Background(), child, 5, 6)
	require.NoError(t, err)
	assert.Equal(t, []byte(" world"), data)
}

func TestWriteOnNonSeekableHandleRejectsNonMonotonicOffset(t *testing.T) {
	h := newHarness(t, session.Flags{})
	child := h.lookupChild(t, h.Root, "f", 0644)
	openNonSeekable(t, h, child)

	_, err := h.FS.Write(context.Background(), child, 4, []byte("hi"))
	require.Error(t, err)
	assert.Equal(t, syscall.ESPIPE, vnode.ToErrno(err))
}

func TestWriteOnNonSeekableHandleAdvancesOffsetSequentially(t *testing.T) {
	h := newHarness(t, session.Flags{})
	child := h.lookupChild(t, h.Root, "f", 0644)
	openNonSeekable(t, h, child)

	n, err := h.FS.Write(context.Background(), child, 0, []byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = h.FS.Write(context.Background(), child, 2, []byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestReadOnSeekableHandleAllowsAnyOffset(t *testing.T) {
	h := newHarness(t, session.Flags{})
	child := h.lookupChild(t, h.Root, "f", 0644)

	h.Transport.Handle(wire.OpOpen, func(ctx context.Context, node wire.NodeID, req any) (any, error) {
		return wire.OpenReply{Handle: 1}, nil
	})
	_, err := h.FS.Open(context.Background(), child, vnode.OpenRequest{Read: true})
	require.NoError(t, err)

	_, err = h.FS.PageCache.ClusterWrite(child.ID(), 0, []byte("hello world"))
	require.NoError(t, err)

	_, err = h.FS.Read(context.Background(), child, 0, 2)
	require.NoError(t, err)
	_, err = h.FS.Read(context.Background(), child, 9, 2)
	require.NoError(t, err)
}

// TestWriteRollsBackToPriorSizeNotOffset regression-tests the rollback path:
// a failed write must restore Filesize to what it was before the write, not
// to the write's (possibly much larger) offset.
func TestWriteRollsBackToPriorSizeNotOffset(t *testing.T) {
	h := newHarness(t, session.Flags{})
	child := h.lookupChild(t, h.Root, "f", 0644)

	n, err := h.FS.Write(context.Background(), child, 0, []byte("hi"))
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, int64(2), child.Filesize)

	h.FS.PageCache = failingWritePageCache{h.PageCache}

	_, err = h.FS.Write(context.Background(), child, 100, []byte("hi"))
	require.Error(t, err)
	assert.Equal(t, syscall.EIO, vnode.ToErrno(err))
	assert.Equal(t, int64(2), child.Filesize, "failed write must restore the size from before it, not the offset")
}
