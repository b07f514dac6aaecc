// Package vnode implements component C6 (spec.md §4.6) — the 35+ VFS entry
// points a host kernel invokes on a vnode — plus component C9 (reclaim and
// inactive). Every entry point follows the same shape: check session/vnode
// liveness, apply the Apple-double/xattr-name filters of pathutil, dispatch
// through the owning session (releasing the session lock around the
// blocking round trip per session.Unlocked), then update the attribute
// cache, file-handle table, and name cache as the operation's contract
// requires.
//
// Grounded on fs/fs.go's fileSystem method set (LookUpInode,
// GetInodeAttributes, SetInodeAttributes, ForgetInode, MkDir, CreateFile,
// CreateSymlink, RmDir, Unlink, OpenDir, ReadDir, ReleaseDirHandle,
// OpenFile, ReadFile, ReadSymlink, WriteFile, SyncFile, FlushFile),
// generalized from GCS-object semantics to the wire-protocol round trips
// named in spec.md §6, and on original_source/fuse_vnops.c for the
// behaviors the GCS-object teacher has no analogue for (Apple-double
// rejection, symlink jailing, xattr fallback preserve/restore, link
// EMLINK/EXDEV pre-checks, create->mknod compensating RELEASE/FORGET).
package vnode

import (
	"os"

	"github.com/coremount/vnodefs/attrcache"
	"github.com/coremount/vnodefs/handle"
	"github.com/coremount/vnodefs/wire"
)

// Flags are per-node bits, set from daemon OPEN replies (spec.md §3 "Node").
type Flags uint32

const (
	// FlagDirectIO marks a vnode whose reads/writes bypass the host page
	// cache entirely, set when an OPEN reply carries wire.FlagDirectIO
	// (spec.md §4.6 "open").
	FlagDirectIO Flags = 1 << iota

	// FlagNonSeekable marks a vnode whose handle the daemon reported as
	// non-seekable (wire.FlagNonSeekable on the OPEN reply, e.g. a pipe or
	// append-only stream behind the daemon). Read/Write on such a handle
	// reject a non-monotonic offset with ESPIPE rather than delegating to
	// cluster I/O (SPEC_FULL.md §6).
	FlagNonSeekable
)

// ChangeFlags are the node's "c_flag" change bits (spec.md §3 "Node").
type ChangeFlags uint32

const (
	// ChangeTouchChgtime records that ctime must be bumped on the next
	// attribute refresh (set by mutating ops between GETATTR round trips).
	ChangeTouchChgtime ChangeFlags = 1 << iota
	// ChangeXtimesValid records that the extended (backup/crtime) timestamps
	// carried in Attr are currently meaningful.
	ChangeXtimesValid
)

// Credentials identifies the caller a session operates on behalf of, used
// to fabricate root-vnode attributes when the session is dead (spec.md
// §4.6 "getattr": "fabricate attrs from daemon credentials").
type Credentials struct {
	UID uint32
	GID uint32
	PID uint32
}

// Node is one live vnode: a daemon nodeid, its cached attributes, its
// three-slot file-handle table, and the bookkeeping reclaim must discharge.
// Node fields are mutated only while the owning session's lock is held
// (spec.md §3 invariant 1); Node carries no lock of its own, matching the
// coarse-lock model of fs/fs.go (Design Note §9 permits per-node locks as a
// future refinement, not a requirement).
type Node struct {
	nodeID       wire.NodeID
	parentNodeID wire.NodeID
	// parentRef is a weak, lookup-only back-reference: it must never be the
	// only thing keeping the parent alive, and ".." resolution must
	// re-verify the parent through the session's registry rather than
	// trusting this pointer blindly, since the parent may have been
	// reclaimed independently (spec.md §9 "Back-reference to parent vnode").
	parentRef *Node

	// Name is the last path component the node was looked up under, used
	// for name-cache purges targeted at a single entry.
	Name string

	// Nlookup counts outstanding LOOKUP grants owed to the daemon; reclaim
	// discharges it with a single FORGET (spec.md §3, §4.6 "reclaim").
	Nlookup uint64

	// Filesize is authoritative for direct-I/O vnodes; otherwise it shadows
	// the host page cache's idea of size.
	Filesize int64

	// Attr is the per-node attribute cache (component C2).
	Attr *attrcache.Cache

	// FUFH is the three-class file-handle table (component C1).
	FUFH handle.Table

	Flags  Flags
	CFlag  ChangeFlags

	// nextOffset is the offset a non-seekable handle (FlagNonSeekable) must
	// see on its next Read/Write call: the byte position one past the end
	// of the last I/O this layer performed. Unused when FlagNonSeekable is
	// clear.
	nextOffset int64

	// cachedType is the last-known S_IFMT bits, used by read/write/lookup to
	// classify a node (directory/regular/symlink) without a GETATTR round
	// trip; it tracks whatever Attr last stored.
	cachedType os.FileMode
}

// NewNode constructs a node for nodeID under parent, using attr as its
// attribute cache, with Nlookup starting at 1 (spec.md §3 "Node").
func NewNode(nodeID, parentNodeID wire.NodeID, parentRef *Node, attr *attrcache.Cache) *Node {
	return &Node{
		nodeID:       nodeID,
		parentNodeID: parentNodeID,
		parentRef:    parentRef,
		Attr:         attr,
		Nlookup:      1,
	}
}

// ID satisfies registry.Node.
func (n *Node) ID() wire.NodeID { return n.nodeID }

// ParentID returns the node's parent's nodeid.
func (n *Node) ParentID() wire.NodeID { return n.parentNodeID }

// ParentRef returns the weak parent back-reference, or nil if unknown. Its
// result must be re-validated against the session's registry before use
// (spec.md §9): the parent may have been reclaimed already.
func (n *Node) ParentRef() *Node { return n.parentRef }

// IsDir reports whether the node's last-cached attributes say directory.
func (n *Node) IsDir() bool { return n.cachedType&os.ModeDir != 0 }

// IsSymlink reports whether the node's last-cached attributes say symlink.
func (n *Node) IsSymlink() bool { return n.cachedType&os.ModeSymlink != 0 }

// IsRegular reports whether the node's last-cached attributes say regular
// file (no type bits set).
func (n *Node) IsRegular() bool { return n.cachedType&os.ModeType == 0 }

// noteType records the type bits of a freshly-stored Attr, for IsDir/
// IsSymlink/IsRegular to consult without re-reading the cache.
func (n *Node) noteType(mode os.FileMode) { n.cachedType = mode & os.ModeType }
