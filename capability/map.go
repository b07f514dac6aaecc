// Package capability implements the per-session bitmap of "daemon
// implements op X" (spec.md §3, §4.1). The map starts all-set and bits are
// only ever cleared, atomically, for the life of the session (Design
// Note §9: "model as an atomic bitmap; clears use atomic-and").
package capability

import (
	"sync/atomic"

	"github.com/coremount/vnodefs/wire"
)

const wordBits = 64

// Map is a lock-free, monotonically-clearing bitmap over wire.Op.
type Map struct {
	words []atomic.Uint64
}

// New returns a capability map with every opcode marked supported.
func New() *Map {
	n := (wire.NumOps + wordBits - 1) / wordBits
	m := &Map{words: make([]atomic.Uint64, n)}
	for i := range m.words {
		m.words[i].Store(^uint64(0))
	}
	return m
}

func split(op wire.Op) (word, bit int) {
	return int(op) / wordBits, int(op) % wordBits
}

// Has reports whether the daemon is currently believed to implement op.
// Lock-free, per spec.md §9 ("Reads are lock-free").
func (m *Map) Has(op wire.Op) bool {
	w, b := split(op)
	return m.words[w].Load()&(1<<uint(b)) != 0
}

// Clear marks op as unsupported. One-way: once cleared for this map, Has
// will never again return true for op (spec.md §4.1, testable property 4).
func (m *Map) Clear(op wire.Op) {
	w, b := split(op)
	mask := ^(uint64(1) << uint(b))
	for {
		old := m.words[w].Load()
		next := old & mask
		if next == old {
			return
		}
		if m.words[w].CompareAndSwap(old, next) {
			return
		}
	}
}
