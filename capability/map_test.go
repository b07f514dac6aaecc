package capability_test

import (
	"sync"
	"testing"

	"github.com/coremount/vnodefs/capability"
	"github.com/coremount/vnodefs/wire"
	"github.com/stretchr/testify/assert"
)

func TestNewMapIsAllSet(t *testing.T) {
	m := capability.New()
	for op := wire.Op(0); int(op) < wire.NumOps; op++ {
		assert.True(t, m.Has(op), "op %v should start supported", op)
	}
}

func TestClearIsMonotonic(t *testing.T) {
	m := capability.New()
	assert.True(t, m.Has(wire.OpCreate))

	m.Clear(wire.OpCreate)
	assert.False(t, m.Has(wire.OpCreate))

	// Clearing again is a no-op, and never un-clears.
	m.Clear(wire.OpCreate)
	assert.False(t, m.Has(wire.OpCreate))
}

func TestClearDoesNotAffectOtherBits(t *testing.T) {
	m := capability.New()
	m.Clear(wire.OpGetxattr)

	assert.False(t, m.Has(wire.OpGetxattr))
	assert.True(t, m.Has(wire.OpSetxattr))
	assert.True(t, m.Has(wire.OpIoctl))
}

func TestClearIsConcurrencySafe(t *testing.T) {
	m := capability.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Clear(wire.OpExchange)
		}()
	}
	wg.Wait()

	assert.False(t, m.Has(wire.OpExchange))
}
