package pagecache_test

import (
	"testing"

	"github.com/coremount/vnodefs/pagecache"
	"github.com/coremount/vnodefs/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClusterWriteThenRead(t *testing.T) {
	f := pagecache.NewFake()

	n, err := f.ClusterWrite(1, 0, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	got, err := f.ClusterRead(1, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestClusterReadPastEndReturnsEmpty(t *testing.T) {
	f := pagecache.NewFake()
	_, _ = f.ClusterWrite(1, 0, []byte("abc"))

	got, err := f.ClusterRead(1, 100, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClusterReadClampsToAvailableLength(t *testing.T) {
	f := pagecache.NewFake()
	_, _ = f.ClusterWrite(1, 0, []byte("abcdef"))

	got, err := f.ClusterRead(1, 4, 100)
	require.NoError(t, err)
	assert.Equal(t, []byte("ef"), got)
}

func TestClusterWriteAtOffsetGrowsFile(t *testing.T) {
	f := pagecache.NewFake()
	_, _ = f.ClusterWrite(1, 0, []byte("abc"))
	_, err := f.ClusterWrite(1, 5, []byte("xy"))
	require.NoError(t, err)

	got, err := f.ClusterRead(1, 0, 7)
	require.NoError(t, err)
	assert.Equal(t, []byte{'a', 'b', 'c', 0, 0, 'x', 'y'}, got)
}

func TestSetSizeTruncatesDown(t *testing.T) {
	f := pagecache.NewFake()
	_, _ = f.ClusterWrite(1, 0, []byte("abcdef"))

	require.NoError(t, f.SetSize(1, 3))
	got, err := f.ClusterRead(1, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
}

func TestSetSizeExtendsWithZeros(t *testing.T) {
	f := pagecache.NewFake()
	_, _ = f.ClusterWrite(1, 0, []byte("ab"))

	require.NoError(t, f.SetSize(1, 4))
	got, err := f.ClusterRead(1, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{'a', 'b', 0, 0}, got)
}

func TestFlushAndInvalidateCountsCalls(t *testing.T) {
	f := pagecache.NewFake()

	require.NoError(t, f.FlushAndInvalidate(1))
	require.NoError(t, f.FlushAndInvalidate(1))
	assert.Equal(t, 2, f.FlushCallCount[1])
}
