// Package pathutil implements the name- and path-level sanity checks of
// spec.md §4.5 (component C5): component length limits, Apple-double
// filtering, the com.apple.* xattr-name filter, and the jail-symlinks
// prefix rewrite.
//
// Grounded directly on original_source/fuse_vnops.c: the FUSE_MAXNAMLEN /
// ENAMETOOLONG check before dispatch (fuse_vnops.c around the lookup/create
// path), fuse_skip_apple_xattr_mp's "com.apple." prefix test gated on a
// session flag, and the FSESS_JAIL_SYMLINKS rewrite in fuse_vnop_readlink.
// Named and shaped the way fs/inode/inode.go's small stateless helpers are:
// plain functions over strings, no package-level state.
package pathutil

import (
	"strings"
	"syscall"
)

// MaxNameLen is FUSE_MAXNAMLEN from original_source/common/fuse_param.h: the
// longest single path component the wire protocol will carry.
const MaxNameLen = 255

// applePrefix is original_source/fuse_vnops.c's COM_APPLE_.
const applePrefix = "com.apple."

// appleDoublePrefix marks the shadow files (._foo) that Finder creates
// alongside every file on a filesystem lacking native xattr/resource-fork
// support. A daemon can ask, via a session flag, that these never be
// created or looked up.
const appleDoublePrefix = "._"

// CheckNameLength returns syscall.ENAMETOOLONG if name exceeds MaxNameLen,
// the check every create/lookup-style op applies before dispatch (spec.md
// §4.5 "name length").
func CheckNameLength(name string) error {
	if len(name) > MaxNameLen {
		return syscall.ENAMETOOLONG
	}
	return nil
}

// IsAppleDouble reports whether name is a Finder Apple-double shadow name
// (e.g. "._foo"), per original_source/fuse_vnops.c's handling of these
// names when the session was mounted without native xattr support.
func IsAppleDouble(name string) bool {
	return strings.HasPrefix(name, appleDoublePrefix)
}

// RejectAppleDouble returns syscall.ENOENT for an Apple-double name when
// rejectAppleDouble is set (spec.md §4.5 "Apple-double filtering": a daemon
// that natively stores xattrs does not want Finder also writing ._ shadow
// files for the same data). Non-Apple-double names, and all names when the
// flag is clear, pass through untouched.
func RejectAppleDouble(name string, rejectAppleDouble bool) error {
	if rejectAppleDouble && IsAppleDouble(name) {
		return syscall.ENOENT
	}
	return nil
}

// IsAppleXattr reports whether name carries the "com.apple." namespace
// prefix, mirroring original_source/fuse_vnops.c's fuse_skip_apple_xattr_mp.
func IsAppleXattr(name string) bool {
	return strings.HasPrefix(name, applePrefix)
}

// FilterAppleXattr returns syscall.ENOTSUP for a com.apple.* xattr name when
// noAppleXattr is set (the FSESS_NO_APPLEXATTR session flag in
// original_source/fuse_vnops.c), so getxattr/setxattr/listxattr act as if
// the daemon never sees Apple's private namespace. Listxattr callers should
// additionally drop com.apple.* entries from a reply rather than erroring.
func FilterAppleXattr(name string, noAppleXattr bool) error {
	if noAppleXattr && IsAppleXattr(name) {
		return syscall.ENOTSUP
	}
	return nil
}

// FilterXattrList removes com.apple.* entries from a listxattr reply when
// noAppleXattr is set, leaving the rest in order.
func FilterXattrList(names []string, noAppleXattr bool) []string {
	if !noAppleXattr {
		return names
	}

	out := names[:0:0]
	for _, n := range names {
		if !IsAppleXattr(n) {
			out = append(out, n)
		}
	}
	return out
}

// JailSymlinkTarget prefixes an absolute readlink target with the host
// mountpoint, per original_source/fuse_vnops.c's FSESS_JAIL_SYMLINKS
// handling in fuse_vnop_readlink: fuse_vnop_readlink uiomoves the
// mountpoint string into the reply buffer and then unconditionally
// uiomoves the full target bytes right after, so a jailed absolute target
// reads as mountpoint+target rather than the daemon's original path — the
// host follows the link inside the mount instead of off it, but the real
// target is still there, just rebased. target is returned unchanged when
// it is relative or jailSymlinks is false.
func JailSymlinkTarget(target, mountpoint string, jailSymlinks bool) string {
	if jailSymlinks && strings.HasPrefix(target, "/") {
		return mountpoint + target
	}
	return target
}
