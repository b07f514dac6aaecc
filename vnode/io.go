// io.go implements Read and Write (spec.md §4.6 "read/write"), the
// direct-I/O chunked round-trip loop and the page-cache delegation path,
// generalized from fs/file.go's buffer-backed read/write.
package vnode

import (
	"context"
	"syscall"

	"github.com/coremount/vnodefs/wire"
)

// Read returns up to length bytes at offset. A directory read through this
// path is rejected with EISDIR; a non-regular, non-directory node is
// rejected with EPERM; a negative offset is EINVAL (spec.md §4.6 "read").
// Zero-length reads return immediately without a dispatch or page-cache
// call (spec.md §8 "Read with zero resid returns 0 without dispatch").
func (fs *FS) Read(ctx context.Context, node *Node, offset int64, length int) ([]byte, error) {
	if err := fs.preamble(); err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, errnoErr(syscall.EINVAL)
	}

	fs.Session.Lock()
	isDir := node.IsDir()
	isRegular := node.IsRegular()
	directIO := node.Flags&FlagDirectIO != 0
	iosize := fs.Session.MaxIO
	seekErr := fs.checkSeekableLocked(node, offset)
	fs.Session.Unlock()

	if isDir {
		return nil, errnoErr(syscall.EISDIR)
	}
	if !isRegular {
		return nil, errnoErr(syscall.EPERM)
	}
	if seekErr != nil {
		return nil, seekErr
	}
	if length == 0 {
		return nil, nil
	}

	var (
		data []byte
		err  error
	)
	if directIO {
		data, err = fs.directRead(ctx, node, offset, length, iosize)
	} else if fs.PageCache == nil {
		err = errnoErr(syscall.EIO)
	} else {
		data, err = fs.PageCache.ClusterRead(node.ID(), offset, length)
		if err != nil {
			err = errnoErr(syscall.EIO)
		}
	}
	if err != nil {
		return nil, err
	}

	fs.Session.Lock()
	fs.advanceNonSeekableLocked(node, offset, len(data))
	fs.Session.Unlock()

	return data, nil
}

// checkSeekableLocked rejects a non-monotonic offset on a handle the daemon
// reported as non-seekable (wire.FlagNonSeekable, SPEC_FULL.md §6): the
// next Read/Write must start exactly where the last one left off. Called
// with fs.Session locked.
func (fs *FS) checkSeekableLocked(node *Node, offset int64) error {
	if node.Flags&FlagNonSeekable == 0 {
		return nil
	}
	if offset != node.nextOffset {
		return errnoErr(syscall.ESPIPE)
	}
	return nil
}

// advanceNonSeekableLocked records the offset a non-seekable handle's next
// Read/Write must land on. Called with fs.Session locked.
func (fs *FS) advanceNonSeekableLocked(node *Node, offset int64, n int) {
	if node.Flags&FlagNonSeekable == 0 {
		return
	}
	node.nextOffset = offset + int64(n)
}

// directRead loops issuing READ in chunks up to iosize, using an existing
// RDONLY slot and falling back to RDWR (spec.md §4.6 "read": "using an
// existing RDONLY/WRONLY slot, falling back to RDWR"). A short reply
// truncates the loop rather than erroring (spec.md §8 scenario 3).
func (fs *FS) directRead(ctx context.Context, node *Node, offset int64, length int, iosize uint32) ([]byte, error) {
	handleID, err := fs.pickHandle(node, wire.ClassRDONLY)
	if err != nil {
		return nil, err
	}

	if iosize == 0 {
		iosize = uint32(length)
	}

	out := make([]byte, 0, length)
	remaining := length
	cur := offset
	for remaining > 0 {
		chunk := remaining
		if uint32(chunk) > iosize {
			chunk = int(iosize)
		}

		reply, err := fs.callDaemon(ctx, wire.OpRead, node.ID(), 0, struct {
			Handle wire.HandleID
			Offset int64
			Size   int
		}{handleID, cur, chunk})
		if err != nil {
			return nil, err
		}
		rr, ok := reply.(wire.ReadReply)
		if !ok {
			return nil, protocolErr(wire.OpRead)
		}

		out = append(out, rr.Data...)
		cur += int64(len(rr.Data))
		remaining -= len(rr.Data)

		if len(rr.Data) < chunk {
			break
		}
	}
	return out, nil
}

// pickHandle returns the handle id of an already-valid slot matching
// preferred, falling back to RDWR (spec.md §4.6 "read/write": "using an
// existing RDONLY/WRONLY slot, falling back to RDWR").
func (fs *FS) pickHandle(node *Node, preferred wire.AccessClass) (wire.HandleID, error) {
	fs.Session.Lock()
	defer fs.Session.Unlock()

	if s := node.FUFH.Slot(preferred); s.Valid() {
		return s.ID, nil
	}
	if s := node.FUFH.Slot(wire.ClassRDWR); s.Valid() {
		return s.ID, nil
	}
	return 0, errnoErr(syscall.EIO)
}

// Write writes data at offset, returning the number of bytes written. The
// same VDIR/non-regular/negative-offset rejections as Read apply (spec.md
// §4.6). Direct-I/O vnodes loop issuing WRITE in iosize chunks, using an
// existing WRONLY slot falling back to RDWR; a short WRITE reply (size !=
// request) is an error, not a truncation, since write ("short reply ...
// is an error (write size must equal request)"). A write extending the
// file updates Filesize before the cluster call so the page cache sees the
// new size, and rolls back on error.
func (fs *FS) Write(ctx context.Context, node *Node, offset int64, data []byte) (int, error) {
	if err := fs.preamble(); err != nil {
		return 0, err
	}
	if offset < 0 {
		return 0, errnoErr(syscall.EINVAL)
	}

	fs.Session.Lock()
	isDir := node.IsDir()
	isRegular := node.IsRegular()
	directIO := node.Flags&FlagDirectIO != 0
	iosize := fs.Session.MaxIO
	seekErr := fs.checkSeekableLocked(node, offset)
	fs.Session.Unlock()

	if isDir {
		return 0, errnoErr(syscall.EISDIR)
	}
	if !isRegular {
		return 0, errnoErr(syscall.EPERM)
	}
	if seekErr != nil {
		return 0, seekErr
	}
	if len(data) == 0 {
		return 0, nil
	}

	var (
		n   int
		err error
	)
	if directIO {
		n, err = fs.directWrite(ctx, node, offset, data, iosize)
		if err == nil {
			fs.maybeGrow(node, offset+int64(n))
		}
	} else if fs.PageCache == nil {
		err = errnoErr(syscall.EIO)
	} else {
		fs.Session.Lock()
		priorSize := node.Filesize
		fs.Session.Unlock()

		newEnd := offset + int64(len(data))
		fs.maybeGrow(node, newEnd)

		n, err = fs.PageCache.ClusterWrite(node.ID(), offset, data)
		if err != nil {
			// Rollback the optimistic size bump to the size from before this
			// write, not to offset: the write never committed any bytes, so
			// offset (which may exceed the node's true prior size) would
			// leave Filesize larger than it was (spec.md §4.6 "write":
			// "commit/rollback on success/IO_UNIT-error").
			fs.restoreSize(node, priorSize)
			err = errnoErr(syscall.EIO)
		}
	}
	if err != nil {
		return 0, err
	}

	fs.Session.Lock()
	fs.advanceNonSeekableLocked(node, offset, n)
	fs.Session.Unlock()

	return n, nil
}

func (fs *FS) directWrite(ctx context.Context, node *Node, offset int64, data []byte, iosize uint32) (int, error) {
	handleID, err := fs.pickHandle(node, wire.ClassWRONLY)
	if err != nil {
		return 0, err
	}

	if iosize == 0 {
		iosize = uint32(len(data))
	}

	written := 0
	for written < len(data) {
		end := written + int(iosize)
		if end > len(data) {
			end = len(data)
		}
		chunk := data[written:end]

		reply, err := fs.callDaemon(ctx, wire.OpWrite, node.ID(), len(chunk), struct {
			Handle wire.HandleID
			Offset int64
			Data   []byte
		}{handleID, offset + int64(written), chunk})
		if err != nil {
			return written, err
		}
		wr, ok := reply.(wire.WriteReply)
		if !ok {
			return written, protocolErr(wire.OpWrite)
		}
		if int(wr.Size) != len(chunk) {
			return written, errnoErr(syscall.EIO)
		}
		written += len(chunk)
	}
	return written, nil
}

func (fs *FS) maybeGrow(node *Node, newEnd int64) {
	fs.Session.Lock()
	defer fs.Session.Unlock()
	if newEnd > node.Filesize {
		node.Filesize = newEnd
	}
}

// restoreSize unconditionally resets node's Filesize, used to undo
// maybeGrow's optimistic bump when the write that required it failed.
func (fs *FS) restoreSize(node *Node, size int64) {
	fs.Session.Lock()
	defer fs.Session.Unlock()
	node.Filesize = size
}
