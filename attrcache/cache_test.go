package attrcache_test

import (
	"os"
	"testing"
	"time"

	"github.com/coremount/vnodefs/attrcache"
	"github.com/coremount/vnodefs/wire"
	"github.com/jacobsa/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreshBeforeAnyStoreIsFalse(t *testing.T) {
	clock := &timeutil.SimulatedClock{}
	c := attrcache.New(clock)
	assert.False(t, c.Fresh())
}

func TestStoreThenFreshWithinWindow(t *testing.T) {
	clock := &timeutil.SimulatedClock{}
	c := attrcache.New(clock)

	c.Store(wire.Attr{Mode: 0644}, time.Second)
	assert.True(t, c.Fresh())

	clock.AdvanceTime(500 * time.Millisecond)
	assert.True(t, c.Fresh())
}

func TestFreshExpiresAfterWindow(t *testing.T) {
	clock := &timeutil.SimulatedClock{}
	c := attrcache.New(clock)

	c.Store(wire.Attr{Mode: 0644}, time.Second)
	clock.AdvanceTime(2 * time.Second)

	assert.False(t, c.Fresh())
}

func TestInvalidateForcesStale(t *testing.T) {
	clock := &timeutil.SimulatedClock{}
	c := attrcache.New(clock)

	c.Store(wire.Attr{Mode: 0644}, time.Minute)
	require.True(t, c.Fresh())

	c.Invalidate()
	assert.False(t, c.Fresh())
}

func TestLoadReturnsStoredAttr(t *testing.T) {
	clock := &timeutil.SimulatedClock{}
	c := attrcache.New(clock)

	want := wire.Attr{Mode: os.ModeDir | 0755, Size: 4096}
	c.Store(want, time.Minute)

	assert.Equal(t, want, c.Load())
}

func TestCheckAndStoreRejectsZeroMode(t *testing.T) {
	clock := &timeutil.SimulatedClock{}
	c := attrcache.New(clock)

	sane, changed := c.CheckAndStore(wire.Attr{}, time.Minute)
	assert.False(t, sane)
	assert.False(t, changed)
	assert.False(t, c.Fresh())
}

func TestCheckAndStoreDetectsTypeChange(t *testing.T) {
	clock := &timeutil.SimulatedClock{}
	c := attrcache.New(clock)

	sane, changed := c.CheckAndStore(wire.Attr{Mode: 0644}, time.Minute)
	require.True(t, sane)
	assert.False(t, changed, "first store has nothing to compare against")

	sane, changed = c.CheckAndStore(wire.Attr{Mode: os.ModeSymlink | 0777}, time.Minute)
	require.True(t, sane)
	assert.True(t, changed, "regular file -> symlink must be reported as a type change")
}

func TestCheckAndStoreSameTypeIsNotAChange(t *testing.T) {
	clock := &timeutil.SimulatedClock{}
	c := attrcache.New(clock)

	_, _ = c.CheckAndStore(wire.Attr{Mode: 0644}, time.Minute)
	sane, changed := c.CheckAndStore(wire.Attr{Mode: 0600}, time.Minute)

	assert.True(t, sane)
	assert.False(t, changed)
}
