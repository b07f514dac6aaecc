// Package attrcache implements the per-node attribute cache (spec.md §3
// "attr_valid", §4.3): a cached wire.Attr plus a validity deadline, loaded
// from GETATTR replies and invalidated by every mutating operation.
//
// Grounded on fs/inode/file.go and fs/inode/dir.go's TTL-and-clock fields,
// and fs/fs.go's GetInodeAttributes/SetInodeAttributes cache-or-dispatch
// shape, using github.com/jacobsa/timeutil.Clock for injectable time as the
// teacher does throughout gcsproxy and clock/.
package attrcache

import (
	"time"

	"github.com/coremount/vnodefs/wire"
	"github.com/jacobsa/timeutil"
)

// Cache holds one node's cached attributes. Callers must hold the owning
// node's lock around all methods.
type Cache struct {
	clock timeutil.Clock

	attr    wire.Attr
	loaded  bool
	validAt time.Time
}

// New returns an attribute cache driven by clock (use timeutil.RealClock()
// in production, a timeutil.SimulatedClock in tests).
func New(clock timeutil.Clock) *Cache {
	return &Cache{clock: clock}
}

// Fresh reports whether the cached attributes are still valid: attr_valid
// is a monotonic deadline, and attrs are fresh iff now <= attr_valid (spec
// §3).
func (c *Cache) Fresh() bool {
	return c.loaded && !c.clock.Now().After(c.validAt)
}

// Load copies the cached attributes out, for serving a request from cache
// without dispatching (spec §4.3 "load"). Callers must check Fresh first.
func (c *Cache) Load() wire.Attr {
	return c.attr
}

// Store records a freshly-fetched attribute set with the given validity
// window, as set from a GETATTR/entry reply's timeout fields (spec §4.3).
func (c *Cache) Store(attr wire.Attr, validFor time.Duration) {
	c.attr = attr
	c.loaded = true
	c.validAt = c.clock.Now().Add(validFor)
}

// Invalidate marks the cache stale immediately. Every mutating op on a node
// (and, as applicable, its parent) must call this (spec §3 invariant 3,
// §8 testable property 6).
func (c *Cache) Invalidate() {
	c.loaded = false
}

// CheckAndStore validates the protocol sanity rule of spec §4.3 ("mode &
// S_IFMT != 0", else EIO) before storing attr, and reports whether attr
// represents a different file type than whatever was previously cached —
// the type-change case that forces a name-cache purge (spec §4.3, §4.6
// "getattr"/"setattr"). If sane is false, attr is not stored.
func (c *Cache) CheckAndStore(attr wire.Attr, validFor time.Duration) (sane bool, typeChanged bool) {
	if attr.Mode == 0 {
		// A zero type is valid only for a regular file; FileMode's Type()
		// returns 0 both for "regular file" and for "no type bits at all", so
		// the only way to tell the daemon sent nothing at all is an entirely
		// zero Mode, which the protocol never legitimately returns.
		return false, false
	}

	typeChanged = c.loaded && c.attr.Mode.Type() != attr.Mode.Type()
	c.Store(attr, validFor)
	return true, typeChanged
}
