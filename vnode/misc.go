// misc.go implements the remaining C6 entry points that do not fit
// attr.go/lookup.go/create.go/open.go/dir.go/link.go/io.go/xattr.go:
// Access, Statfs, Fsync, Flush, the paging/buffer-cache group (Pagein,
// Pageout, Strategy, Blockmap, Blktooff, Offtoblk), Ioctl, Exchange and
// Pathconf. Grounded on fs/fs.go's StatFS (dead-mount fabrication) and
// original_source/fuse_vnops.c for the ops fs/fs.go's GCS-object model has
// no analogue for (ioctl, exchange, the buffer-cache group, pathconf's
// closed answer table).
package vnode

import (
	"context"
	"syscall"

	"github.com/coremount/vnodefs/wire"
	"golang.org/x/sys/unix"
)

// Access dispatches ACCESS for the requested mode bits. A dead session
// answers 0 for the root vnode without dispatching (spec.md §4.6 preamble
// exception: "access on root returns 0") and ENXIO for anything else; a
// root ACCESS that finds the transport dead also answers 0.
func (fs *FS) Access(ctx context.Context, node *Node, mode uint32) error {
	fs.Session.Lock()
	dead := fs.Session.Dead()
	fs.Session.Unlock()
	if dead {
		if node.ID() == wire.RootNodeID {
			return nil
		}
		return deadErr()
	}

	_, err := fs.callDaemon(ctx, wire.OpAccess, node.ID(), 0, mode)
	if ve, ok := err.(*Error); ok && ve.Kind == KindDead && node.ID() == wire.RootNodeID {
		return nil
	}
	return err
}

// Statfs dispatches STATFS. A dead session talking about the root vnode,
// or a root STATFS that finds the transport dead, fabricates an
// all-zero-free-space reply rather than failing, matching
// getattr's dead-root fabrication (spec.md §4.6 "root vnode attr paths";
// SPEC_FULL.md §6).
func (fs *FS) Statfs(ctx context.Context, node *Node) (wire.StatfsReply, error) {
	fs.Session.Lock()
	dead := fs.Session.Dead()
	fs.Session.Unlock()
	if dead {
		if node.ID() == wire.RootNodeID {
			return fs.fabricateStatfs(), nil
		}
		return wire.StatfsReply{}, deadErr()
	}

	reply, err := fs.callDaemon(ctx, wire.OpStatfs, node.ID(), 0, nil)
	if err != nil {
		if ve, ok := err.(*Error); ok && ve.Kind == KindDead && node.ID() == wire.RootNodeID {
			return fs.fabricateStatfs(), nil
		}
		return wire.StatfsReply{}, err
	}
	sr, ok := reply.(wire.StatfsReply)
	if !ok {
		return wire.StatfsReply{}, protocolErr(wire.OpStatfs)
	}
	return sr, nil
}

func (fs *FS) fabricateStatfs() wire.StatfsReply {
	fs.Session.Lock()
	bs := fs.Session.BlockSize
	fs.Session.Unlock()
	return wire.StatfsReply{BlockSize: bs, IoSize: bs, NameLen: 255}
}

// Fsync dispatches FSYNC (or FSYNCDIR) and returns 0 without dispatching on
// a dead session (spec.md §4.6 preamble exception); an FSYNC that finds the
// transport dead also returns 0. waitForData is accepted
// but intentionally does not change dispatch behavior — this mirrors
// original_source/fuse_vnops.c's fuse_vnop_fsync, which also ignores it
// (spec.md §9 Open Question: kept).
func (fs *FS) Fsync(ctx context.Context, node *Node, isDir bool, waitForData bool) error {
	fs.Session.Lock()
	dead := fs.Session.Dead()
	fs.Session.Unlock()
	if dead {
		return nil
	}

	op := wire.OpFsync
	if isDir {
		op = wire.OpFsyncdir
	}
	_, err := fs.callDaemon(ctx, op, node.ID(), 0, nil)
	if ve, ok := err.(*Error); ok && ve.Kind == KindDead {
		return nil
	}
	return err
}

// Flush dispatches FLUSH for a caller that needs it outside of close (e.g.
// an explicit fsync(2) on a handle); a capability-missing outcome is
// ignored rather than surfaced (spec.md §4.1 "flush → ignore").
func (fs *FS) Flush(ctx context.Context, node *Node) error {
	if err := fs.preamble(); err != nil {
		return err
	}

	fs.Session.Lock()
	hasFlush := fs.Session.Capabilities().Has(wire.OpFlush)
	fs.Session.Unlock()
	if !hasFlush {
		return nil
	}

	_, err := fs.callDaemon(ctx, wire.OpFlush, node.ID(), 0, nil)
	if err != nil {
		if ve, ok := err.(*Error); ok && ve.Kind == KindNotImplemented {
			return nil
		}
		return err
	}
	return nil
}

// directIOPagingCheck rejects the paging/buffer-cache group with ENOTSUP
// for a DIRECT_IO vnode, which has no page-cache-backed data to page
// (spec.md §4.6 "pagein/pageout/strategy/blockmap/blktooff/offtoblk").
func (fs *FS) directIOPagingCheck(node *Node) error {
	fs.Session.Lock()
	directIO := node.Flags&FlagDirectIO != 0
	fs.Session.Unlock()
	if directIO {
		return errnoErr(syscall.ENOTSUP)
	}
	return nil
}

// Pagein reads length bytes at offset through the page cache for the host
// VM system's page-in fault handler.
func (fs *FS) Pagein(ctx context.Context, node *Node, offset int64, length int) ([]byte, error) {
	if err := fs.directIOPagingCheck(node); err != nil {
		return nil, err
	}
	if fs.PageCache == nil {
		return nil, errnoErr(syscall.EIO)
	}
	data, err := fs.PageCache.ClusterRead(node.ID(), offset, length)
	if err != nil {
		return nil, errnoErr(syscall.EIO)
	}
	return data, nil
}

// Pageout writes data at offset through the page cache for the host VM
// system's page-out reclaim path.
func (fs *FS) Pageout(ctx context.Context, node *Node, offset int64, data []byte) (int, error) {
	if err := fs.directIOPagingCheck(node); err != nil {
		return 0, err
	}
	if fs.PageCache == nil {
		return 0, errnoErr(syscall.EIO)
	}
	n, err := fs.PageCache.ClusterWrite(node.ID(), offset, data)
	if err != nil {
		return 0, errnoErr(syscall.EIO)
	}
	return n, nil
}

// Strategy services a single buffer-cache I/O request: a dead session marks
// the request errored without touching the page cache (spec.md §4.6
// "strategy on a dead session marks the buf errored and completes it"); a
// DIRECT_IO vnode refuses with ENOTSUP like the rest of the group.
func (fs *FS) Strategy(ctx context.Context, node *Node, offset int64, buf []byte, isWrite bool) (int, error) {
	fs.Session.Lock()
	dead := fs.Session.Dead()
	fs.Session.Unlock()
	if dead {
		return 0, deadErr()
	}
	if err := fs.directIOPagingCheck(node); err != nil {
		return 0, err
	}
	if fs.PageCache == nil {
		return 0, errnoErr(syscall.EIO)
	}

	if isWrite {
		n, err := fs.PageCache.ClusterWrite(node.ID(), offset, buf)
		if err != nil {
			return 0, errnoErr(syscall.EIO)
		}
		return n, nil
	}

	out, err := fs.PageCache.ClusterRead(node.ID(), offset, len(buf))
	if err != nil {
		return 0, errnoErr(syscall.EIO)
	}
	n := copy(buf, out)
	return n, nil
}

// Blockmap dispatches BMAP, translating a logical block of node into the
// daemon's idea of the underlying physical block.
func (fs *FS) Blockmap(ctx context.Context, node *Node, logicalBlock int64) (uint64, error) {
	if err := fs.directIOPagingCheck(node); err != nil {
		return 0, err
	}

	reply, err := fs.callDaemon(ctx, wire.OpBmap, node.ID(), 0, logicalBlock)
	if err != nil {
		return 0, err
	}
	br, ok := reply.(wire.BmapReply)
	if !ok {
		return 0, protocolErr(wire.OpBmap)
	}
	return br.Block, nil
}

// Blktooff converts a logical block number to a byte offset using the
// session's negotiated block size; a zero block size is EINVAL.
func (fs *FS) Blktooff(node *Node, block int64) (int64, error) {
	if err := fs.directIOPagingCheck(node); err != nil {
		return 0, err
	}

	fs.Session.Lock()
	bs := int64(fs.Session.BlockSize)
	fs.Session.Unlock()
	if bs == 0 {
		return 0, errnoErr(syscall.EINVAL)
	}
	return block * bs, nil
}

// Offtoblk is Blktooff's inverse.
func (fs *FS) Offtoblk(node *Node, offset int64) (int64, error) {
	if err := fs.directIOPagingCheck(node); err != nil {
		return 0, err
	}

	fs.Session.Lock()
	bs := int64(fs.Session.BlockSize)
	fs.Session.Unlock()
	if bs == 0 {
		return 0, errnoErr(syscall.EINVAL)
	}
	return offset / bs, nil
}

// IoctlFlag marks which buffers an IOCTL request carries.
type IoctlFlag uint32

const (
	// IocIn marks a request carrying an input buffer to copy to the daemon.
	IocIn IoctlFlag = 1 << iota
	// IocOut marks a request expecting an output buffer back from the
	// daemon.
	IocOut
)

// IoctlRequest carries an ioctl(2)-style request: the handle class to
// issue it against, the command, and which of the in/out buffers are
// meaningful (per IoctlFlag).
type IoctlRequest struct {
	Class   wire.AccessClass
	Cmd     uint32
	Flags   IoctlFlag
	In      []byte
	OutSize int
}

// Ioctl is capability-gated and proxies the in/out buffers IocIn/IocOut
// select using bitwise-AND, not the bitwise-OR original_source/
// fuse_vnops.c's fuse_vnop_ioctl used (a bug that made the condition
// constant-true and copied both buffers unconditionally; spec.md §9 Open
// Question: fixed here). Requires a valid handle slot matching req.Class
// (EIO otherwise).
func (fs *FS) Ioctl(ctx context.Context, node *Node, req IoctlRequest) (wire.IoctlReply, error) {
	if err := fs.preamble(); err != nil {
		return wire.IoctlReply{}, err
	}

	fs.Session.Lock()
	hasCap := fs.Session.Capabilities().Has(wire.OpIoctl)
	fs.Session.Unlock()
	if !hasCap {
		return wire.IoctlReply{}, &Error{Kind: KindNotImplemented, Op: wire.OpIoctl, Errno: syscall.ENOTSUP}
	}

	handleID, err := fs.pickHandle(node, req.Class)
	if err != nil {
		return wire.IoctlReply{}, err
	}

	var in []byte
	if req.Flags&IocIn != 0 {
		in = req.In
	}
	outSize := 0
	if req.Flags&IocOut != 0 {
		outSize = req.OutSize
	}

	reply, err := fs.callDaemon(ctx, wire.OpIoctl, node.ID(), len(in), struct {
		Handle  wire.HandleID
		Cmd     uint32
		In      []byte
		OutSize int
	}{handleID, req.Cmd, in, outSize})
	if err != nil {
		return wire.IoctlReply{}, err
	}
	ir, ok := reply.(wire.IoctlReply)
	if !ok {
		return wire.IoctlReply{}, protocolErr(wire.OpIoctl)
	}
	return ir, nil
}

// ExchangeRequest names the two entries EXCHANGE atomically swaps the
// contents of. Supplemented from original_source/fuse_vnops.c's
// fuse_vnop_exchange, since the distilled spec lists EXCHANGE only in the
// opcode set without a contract (SPEC_FULL.md §6).
type ExchangeRequest struct {
	Parent1 *Node
	Name1   string
	Parent2 *Node
	Name2   string
}

// Exchange is capability-gated; on success it invalidates and purges both
// parents, since the swap changes the entry each name resolves to.
func (fs *FS) Exchange(ctx context.Context, req ExchangeRequest) error {
	if err := fs.preamble(); err != nil {
		return err
	}

	fs.Session.Lock()
	hasCap := fs.Session.Capabilities().Has(wire.OpExchange)
	fs.Session.Unlock()
	if !hasCap {
		return &Error{Kind: KindNotImplemented, Op: wire.OpExchange, Errno: syscall.ENOTSUP}
	}

	_, err := fs.callDaemon(ctx, wire.OpExchange, req.Parent1.ID(), len(req.Name1)+len(req.Name2), struct {
		Name1   string
		Parent2 wire.NodeID
		Name2   string
	}{req.Name1, req.Parent2.ID(), req.Name2})
	if err != nil {
		return err
	}

	fs.invalidateLocked(req.Parent1)
	fs.invalidateLocked(req.Parent2)
	fs.purgeName(req.Parent1.ID(), req.Name1)
	fs.purgeName(req.Parent2.ID(), req.Name2)
	return nil
}

// PathconfName identifies one of pathconf(2)'s _PC_* variables.
type PathconfName int

const (
	PathconfLinkMax PathconfName = iota
	PathconfNameMax
	PathconfPathMax
	PathconfPipeBuf
	PathconfChownRestricted
	PathconfNoTrunc
	PathconfNameCharsMax
	PathconfCaseSensitive
	PathconfCasePreserving
)

// hostPathMax is unix.PathMax, the host's MAXPATHLEN, which
// original_source/fuse_vnops.c reads from the kernel; this layer has no
// kernel to ask, so it carries the platform constant x/sys/unix already
// resolves per-GOOS. hostPipeBuf has no equivalent exported constant in
// x/sys/unix, so it carries the common POSIX PIPE_BUF value directly.
const (
	hostPathMax = unix.PathMax
	hostPipeBuf = 4096
)

// Pathconf answers from the closed table spec.md §6 defines; any name
// outside it is EINVAL.
func (fs *FS) Pathconf(name PathconfName) (int64, error) {
	switch name {
	case PathconfLinkMax:
		return LinkMax, nil
	case PathconfNameMax:
		return 255, nil
	case PathconfPathMax:
		return hostPathMax, nil
	case PathconfPipeBuf:
		return hostPipeBuf, nil
	case PathconfChownRestricted:
		return 1, nil
	case PathconfNoTrunc:
		return 0, nil
	case PathconfNameCharsMax:
		return 255, nil
	case PathconfCaseSensitive:
		return 1, nil
	case PathconfCasePreserving:
		return 1, nil
	default:
		return 0, errnoErr(syscall.EINVAL)
	}
}
