// Package session implements the session object of spec.md §3 (component
// C3's dispatch target and C7's lock owner): one per mounted daemon
// connection, holding the wire transport, the capability map, the node
// registry, negotiated I/O sizes, and the session-wide coarse lock.
//
// Grounded on fs/fs.go's fileSystem struct (Dependencies / Constant data /
// Mutable state sections) and its "LOCK ORDERING" doctrine comment: a
// single syncutil.InvariantMutex guards session-wide state, callers drop it
// before any blocking dispatch and reacquire it after, and per-node locks
// nest under it, never the reverse.
package session

import (
	"time"

	"github.com/coremount/vnodefs/capability"
	"github.com/coremount/vnodefs/internal/metrics"
	"github.com/coremount/vnodefs/registry"
	"github.com/coremount/vnodefs/wire"
	"github.com/jacobsa/syncutil"
	"github.com/jacobsa/timeutil"
)

// Flags mirrors the data flags enumerated in spec.md §3: the mount-option
// and daemon-negotiated behaviors every component checks repeatedly rather
// than threading through every call.
type Flags struct {
	// NoAppleXattr rejects xattr names starting with "com.apple." (spec.md
	// §3 "NO_APPLEXATTR").
	NoAppleXattr bool
	// AutoXattr means the host VFS handles xattrs itself; this layer
	// refuses every xattr op with "not supported" (spec.md §3
	// "AUTO_XATTR").
	AutoXattr bool
	// JailSymlinks prefixes an absolute symlink target with the mountpoint
	// rather than letting readlink return it unmodified (spec.md §3
	// "JAIL_SYMLINKS").
	JailSymlinks bool
	// NoVnCache bypasses the host name cache entirely (spec.md §3
	// "NO_VNCACHE").
	NoVnCache bool
	// NoSyncOnClose suppresses the synchronous dirty-page push close would
	// otherwise perform (spec.md §3 "NO_SYNCONCLOSE").
	NoSyncOnClose bool
	// NoSyncWrites suppresses sync-on-write; cleared automatically the
	// first time a vnode is opened DIRECT_IO (spec.md §3 "NO_SYNCWRITES",
	// §4.6 "open").
	NoSyncWrites bool
	// RejectAppleDouble rejects Finder's "._name" shadow files at
	// lookup/create, for daemons that store xattrs natively
	// (original_source/fuse_vnops.c; not a named spec.md §3 data flag but
	// gated the same way).
	RejectAppleDouble bool
	// ReadOnly rejects any attribute change with EROFS (spec.md §4.6
	// "setattr": "reject any change on read-only mount"; §7 lists EROFS as a
	// domain error that must propagate). Mirrors the host mount's read-only
	// bit; this layer has no way to discover it on its own, so it is
	// threaded in at mount time alongside the other §3 data flags.
	ReadOnly bool
}

// Session is the per-mount state shared by every dispatched vnode
// operation.
type Session struct {
	/////////////////////////
	// Dependencies
	/////////////////////////

	Transport wire.Transport
	Clock     timeutil.Clock

	// Metrics records per-op outcome counters and latency, defaulting to a
	// no-op so callers that don't care about observability don't need to
	// thread a Handle through every constructor.
	Metrics metrics.Handle

	/////////////////////////
	// Constant data
	/////////////////////////

	Mountpoint string
	BlockSize  uint32
	MaxIO      uint32
	Flags      Flags

	AttrValidDefault  time.Duration
	EntryValidDefault time.Duration

	/////////////////////////
	// Mutable state
	/////////////////////////

	// mu guards everything below it and any session-wide bookkeeping a
	// caller adds. Per-node locks nest under mu; mu is never reacquired
	// while holding a node lock acquired after it (fs/fs.go's "LOCK
	// ORDERING" comment: drop the coarser lock before acquiring a finer
	// one, or before any call that may block on I/O).
	mu syncutil.InvariantMutex

	// GUARDED_BY(mu)
	caps *capability.Map

	// GUARDED_BY(mu)
	nodes *registry.Registry

	// GUARDED_BY(mu)
	nextNodeID wire.NodeID

	// GUARDED_BY(mu)
	dead bool

	// GUARDED_BY(mu)
	inited bool
}

// New returns a Session ready for INIT. The capability map starts
// all-supported (spec.md §4.1); bits are cleared as the daemon's replies
// reveal ENOSYS.
func New(tr wire.Transport, clock timeutil.Clock, mountpoint string, flags Flags) *Session {
	s := &Session{
		Transport:  tr,
		Clock:      clock,
		Metrics:    metrics.NewNoop(),
		Mountpoint: mountpoint,
		Flags:      flags,
		caps:       capability.New(),
		nodes:      registry.New(),
		nextNodeID: wire.RootNodeID + 1,
	}
	s.mu = syncutil.NewInvariantMutex(s.checkInvariants)
	return s
}

func (s *Session) checkInvariants() {
	if s.nextNodeID <= wire.RootNodeID {
		panic("session: nextNodeID must exceed the root node ID")
	}
}

// Lock acquires the session-wide lock.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session-wide lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// Capabilities returns the session's capability map. Safe to call without
// holding mu: capability.Map is internally lock-free.
func (s *Session) Capabilities() *capability.Map { return s.caps }

// Nodes returns the session's node registry. Safe to call without holding
// mu: registry.Registry has its own internal lock.
func (s *Session) Nodes() *registry.Registry { return s.nodes }

// AllocateNodeID hands out the next node ID. Callers must hold mu.
func (s *Session) AllocateNodeID() wire.NodeID {
	id := s.nextNodeID
	s.nextNodeID++
	return id
}

// MarkInited records that INIT has completed successfully. Callers must
// hold mu.
func (s *Session) MarkInited() { s.inited = true }

// Inited reports whether INIT has completed. Callers must hold mu.
func (s *Session) Inited() bool { return s.inited }

// MarkDead records that the transport has gone away (spec.md §7 "session
// death"): every subsequent op fails fast with ENXIO without dispatching,
// mirroring original_source/fuse_vnops.c's fuse_isdeadfs check at the top
// of nearly every vnop. Callers must hold mu.
func (s *Session) MarkDead() { s.dead = true }

// Dead reports whether the session has been marked dead. Callers must hold
// mu.
func (s *Session) Dead() bool { return s.dead }
