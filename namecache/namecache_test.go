package namecache_test

import (
	"testing"

	"github.com/coremount/vnodefs/namecache"
	"github.com/coremount/vnodefs/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnterThenLookupHitsPositive(t *testing.T) {
	c := namecache.NewMemCache()
	c.Enter(1, "foo", 2)

	child, ok := c.Lookup(1, "foo")
	require.True(t, ok)
	assert.Equal(t, wire.NodeID(2), child)
}

func TestLookupMissIsFalse(t *testing.T) {
	c := namecache.NewMemCache()
	_, ok := c.Lookup(1, "nope")
	assert.False(t, ok)
}

func TestEnterNegativeHitsWithZeroChild(t *testing.T) {
	c := namecache.NewMemCache()
	c.EnterNegative(1, "missing")

	child, ok := c.Lookup(1, "missing")
	require.True(t, ok)
	assert.Equal(t, wire.NodeID(0), child)
}

func TestEnterOverwritesNegative(t *testing.T) {
	c := namecache.NewMemCache()
	c.EnterNegative(1, "foo")
	c.Enter(1, "foo", 5)

	child, ok := c.Lookup(1, "foo")
	require.True(t, ok)
	assert.Equal(t, wire.NodeID(5), child)
}

func TestPurgeDropsEntriesByParentOrChild(t *testing.T) {
	c := namecache.NewMemCache()
	c.Enter(1, "a", 10)
	c.Enter(1, "b", 11)
	c.Enter(10, "c", 12)
	c.EnterNegative(1, "d")

	c.Purge(1)

	_, ok := c.Lookup(1, "a")
	assert.False(t, ok)
	_, ok = c.Lookup(1, "b")
	assert.False(t, ok)
	_, ok = c.Lookup(1, "d")
	assert.False(t, ok)
	// Entry keyed under a different parent (10) pointing at unrelated child
	// 12 survives purging node 1.
	child, ok := c.Lookup(10, "c")
	require.True(t, ok)
	assert.Equal(t, wire.NodeID(12), child)
}

func TestPurgeByChildDropsEntry(t *testing.T) {
	c := namecache.NewMemCache()
	c.Enter(1, "a", 99)
	c.Purge(99)

	_, ok := c.Lookup(1, "a")
	assert.False(t, ok)
}

func TestPurgeEntryDropsOnlyThatName(t *testing.T) {
	c := namecache.NewMemCache()
	c.Enter(1, "a", 2)
	c.Enter(1, "b", 3)

	c.PurgeEntry(1, "a")

	_, ok := c.Lookup(1, "a")
	assert.False(t, ok)
	child, ok := c.Lookup(1, "b")
	require.True(t, ok)
	assert.Equal(t, wire.NodeID(3), child)
}

func TestPurgeNegativesLeavesPositiveEntriesAndOtherParents(t *testing.T) {
	c := namecache.NewMemCache()
	c.Enter(1, "a", 2)
	c.EnterNegative(1, "missing")
	c.EnterNegative(9, "elsewhere")

	c.PurgeNegatives(1)

	_, ok := c.Lookup(1, "missing")
	assert.False(t, ok)
	child, ok := c.Lookup(1, "a")
	require.True(t, ok)
	assert.Equal(t, wire.NodeID(2), child)
	_, ok = c.Lookup(9, "elsewhere")
	assert.True(t, ok)
}
