// Package namecache defines the host name-cache interface spec.md §6
// requires vnode operations to drive (component C6 callers invalidate or
// populate a directory's name cache on lookup, create, rename, and
// unlink/rmdir), and an in-memory implementation for tests.
//
// Grounded on fs/dir.go's handling of kernel dentry caching around
// lookups and fs/fs.go's LookUpInode path, generalized past gcsfuse's
// GCS-object-specific cache into a narrow interface so vnode can be tested
// without a real kernel name cache.
package namecache

import "github.com/coremount/vnodefs/wire"

// Cache is the name-cache surface a vnode operation drives. Entries are
// keyed by (parent, name); a positive entry maps to a child NodeID, a
// negative entry records only that the name was absent.
type Cache interface {
	// Enter records a positive entry: name under parent resolves to child.
	Enter(parent wire.NodeID, name string, child wire.NodeID)

	// EnterNegative records that name is known absent under parent (spec.md
	// §4.6 "lookup": a failed LOOKUP may be cached negatively when the
	// daemon's entry_valid timeout permits it).
	EnterNegative(parent wire.NodeID, name string)

	// Lookup returns the cached child for (parent, name) and whether any
	// entry (positive or negative) exists. ok is false on a cache miss;
	// when ok is true and child is zero, the entry is negative.
	Lookup(parent wire.NodeID, name string) (child wire.NodeID, ok bool)

	// Purge drops every entry naming parent as either the parent or the
	// child (spec.md §4.6: mkdir/create/rename/unlink/rmdir invalidate the
	// containing directory's entries, and a GETATTR/SETATTR type change
	// invalidates any entry pointing at the changed node).
	Purge(node wire.NodeID)

	// PurgeEntry drops exactly the (parent, name) entry, used after a
	// successful rename or unlink of that one name rather than the whole
	// directory.
	PurgeEntry(parent wire.NodeID, name string)

	// PurgeNegatives drops every negative entry naming parent, without
	// touching its positive entries (spec.md §4.6 "create": on success,
	// purge negative name-cache entries for parent).
	PurgeNegatives(parent wire.NodeID)
}

type key struct {
	parent wire.NodeID
	name   string
}

// MemCache is an in-memory Cache for tests.
type MemCache struct {
	entries map[key]wire.NodeID
	negative map[key]bool
}

// NewMemCache returns an empty MemCache.
func NewMemCache() *MemCache {
	return &MemCache{
		entries:  make(map[key]wire.NodeID),
		negative: make(map[key]bool),
	}
}

func (m *MemCache) Enter(parent wire.NodeID, name string, child wire.NodeID) {
	k := key{parent, name}
	m.entries[k] = child
	delete(m.negative, k)
}

func (m *MemCache) EnterNegative(parent wire.NodeID, name string) {
	k := key{parent, name}
	delete(m.entries, k)
	m.negative[k] = true
}

func (m *MemCache) Lookup(parent wire.NodeID, name string) (wire.NodeID, bool) {
	k := key{parent, name}
	if child, ok := m.entries[k]; ok {
		return child, true
	}
	if m.negative[k] {
		return 0, true
	}
	return 0, false
}

func (m *MemCache) Purge(node wire.NodeID) {
	for k, child := range m.entries {
		if k.parent == node || child == node {
			delete(m.entries, k)
		}
	}
	for k := range m.negative {
		if k.parent == node {
			delete(m.negative, k)
		}
	}
}

func (m *MemCache) PurgeEntry(parent wire.NodeID, name string) {
	k := key{parent, name}
	delete(m.entries, k)
	delete(m.negative, k)
}

func (m *MemCache) PurgeNegatives(parent wire.NodeID) {
	for k := range m.negative {
		if k.parent == parent {
			delete(m.negative, k)
		}
	}
}
