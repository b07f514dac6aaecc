// lookup.go implements Lookup (spec.md §4.6 "lookup"), generalized from
// fs/fs.go's LookUpInode (GCS-object child resolution via
// lookUpOrCreateChildInode) to the wire protocol's LOOKUP round trip, name
// cache consultation, and the nameiop/ISLASTCN corner cases
// original_source/fuse_vnops.c's fuse_vnop_lookup handles.
package vnode

import (
	"context"
	"os"
	"syscall"

	"github.com/coremount/vnodefs/wire"
)

// Intent mirrors the VFS component-name "nameiop" the caller is resolving
// the last path component for (CREATE/DELETE/RENAME change what an
// otherwise-ordinary lookup must return, per spec.md §4.6 "lookup").
type Intent int

const (
	IntentLookup Intent = iota
	IntentCreate
	IntentDelete
	IntentRename
)

// LookupRequest names the arguments a Lookup call needs beyond the parent
// node and name: whether this is the final component of the path being
// resolved (IsLast) and why (Intent), since only the last component's
// semantics change for CREATE/DELETE/RENAME.
type LookupRequest struct {
	Intent Intent
	IsLast bool
}

// LookupResult is what Lookup returns on success. EJustReturn signals the
// "defer to the caller, no child vnode" outcome VFS expects for a negative
// CREATE/RENAME lookup of the last component (spec.md §4.6).
type LookupResult struct {
	Child     *Node
	EJustReturn bool
}

// Lookup resolves name under parent. "." and ".." are handled without a
// name-cache or LOOKUP round trip: "." issues GETATTR on parent's own id,
// ".." does the same against parent's recorded parent id. Otherwise the
// name cache (fs.NameCache) is consulted first, unless nil; on a miss (or
// when bypassed), a LOOKUP request is dispatched.
func (fs *FS) Lookup(ctx context.Context, parent *Node, name string, req LookupRequest) (LookupResult, error) {
	if err := fs.preamble(); err != nil {
		return LookupResult{}, err
	}

	if name != "." && name != ".." {
		if err := fs.checkName(name); err != nil {
			return LookupResult{}, err
		}
	}

	if name == "." {
		if req.IsLast && req.Intent == IntentDelete {
			// DELETE of "." returns the parent vnode itself, held (spec.md
			// §4.6 "lookup": "On DELETE last component with '.', return the
			// parent vnode held").
			return LookupResult{Child: parent}, nil
		}
		if req.IsLast && req.Intent == IntentRename {
			return LookupResult{}, errnoErr(syscall.EISDIR)
		}
		if _, err := fs.Getattr(ctx, parent.ID()); err != nil {
			return LookupResult{}, err
		}
		return LookupResult{Child: parent}, nil
	}

	if name == ".." {
		grandparent := fs.resolveParent(parent)
		if grandparent == nil {
			return LookupResult{}, errnoErr(syscall.ESTALE)
		}
		if _, err := fs.Getattr(ctx, grandparent.ID()); err != nil {
			return LookupResult{}, err
		}
		return LookupResult{Child: grandparent}, nil
	}

	if !req.IsLast && !parent.IsDir() && !parent.IsSymlink() {
		return LookupResult{}, errnoErr(syscall.ENOTDIR)
	}

	if fs.NameCache != nil {
		if childID, ok := fs.NameCache.Lookup(parent.ID(), name); ok {
			if childID == 0 {
				return fs.lookupNegativeOutcome(req)
			}
			child, err := fs.lookupNode(childID)
			if err == nil {
				return LookupResult{Child: child}, nil
			}
			// Cache pointed at a reclaimed node; fall through to a live
			// LOOKUP as if it had been a miss.
		}
	}

	reply, err := fs.callDaemon(ctx, wire.OpLookup, parent.ID(), len(name), name)
	if err != nil {
		return LookupResult{}, err
	}

	er, ok := reply.(wire.EntryReply)
	if !ok {
		return LookupResult{}, protocolErr(wire.OpLookup)
	}

	if er.NodeID == 0 {
		if fs.NameCache != nil {
			fs.NameCache.EnterNegative(parent.ID(), name)
		}
		return fs.lookupNegativeOutcome(req)
	}

	if er.NodeID == wire.RootNodeID {
		return LookupResult{}, errnoErr(syscall.EINVAL)
	}
	if er.Attr.Mode&os.ModeType == 0 && er.Attr.Mode == 0 {
		return LookupResult{}, errnoErr(syscall.EIO)
	}

	if req.IsLast && req.Intent == IntentRename && er.Attr.Mode.IsDir() {
		return LookupResult{}, errnoErr(syscall.EISDIR)
	}

	child := fs.instantiateChild(parent, name, er)
	if fs.NameCache != nil {
		fs.NameCache.Enter(parent.ID(), name, child.ID())
	}
	return LookupResult{Child: child}, nil
}

// lookupNegativeOutcome implements spec.md §4.6's "Zero nodeid in reply =>
// negative cache entry (unless CREATE/RENAME at last component => return
// EJUSTRETURN)".
func (fs *FS) lookupNegativeOutcome(req LookupRequest) (LookupResult, error) {
	if req.IsLast && (req.Intent == IntentCreate || req.Intent == IntentRename) {
		return LookupResult{EJustReturn: true}, nil
	}
	return LookupResult{}, errnoErr(syscall.ENOENT)
}

// resolveParent re-validates the weak parent back-reference through the
// session registry rather than trusting node.ParentRef() blindly, since the
// parent may have been reclaimed independently (spec.md §9).
func (fs *FS) resolveParent(node *Node) *Node {
	fs.Session.Lock()
	defer fs.Session.Unlock()

	if n, ok := fs.Session.Nodes().Lookup(node.ParentID()); ok {
		if p, ok := n.(*Node); ok {
			return p
		}
	}
	return node.ParentRef()
}

// instantiateChild installs a new Node for a successful entry reply into
// the session registry, minting a fresh attribute cache primed from the
// reply (spec.md §3 "Node", §4.6 "lookup" final sanity check already
// applied by the caller).
func (fs *FS) instantiateChild(parent *Node, name string, er wire.EntryReply) *Node {
	fs.Session.Lock()
	defer fs.Session.Unlock()

	if existing, ok := fs.Session.Nodes().Lookup(er.NodeID); ok {
		if child, ok := existing.(*Node); ok {
			child.Nlookup++
			child.Name = name
			return child
		}
	}

	child := NewNode(er.NodeID, parent.ID(), parent, newAttrCache(fs.Session))
	child.Name = name
	child.noteType(er.Attr.Mode)
	child.Attr.Store(er.Attr, er.AttrValid)
	fs.Session.Nodes().Insert(child)
	return child
}

func (fs *FS) sessionRejectAppleDouble() bool {
	fs.Session.Lock()
	defer fs.Session.Unlock()
	return fs.Session.Flags.RejectAppleDouble
}
