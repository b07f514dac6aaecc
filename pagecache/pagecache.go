// Package pagecache defines the host page-cache interface spec.md §6
// requires vnode operations to drive: invalidation on a type change or
// OPEN reply without KEEP_CACHE, and the cluster read/write hooks the
// direct-I/O path bypasses. A fake implementation backs tests.
//
// Grounded on fs/file.go's handling of the kernel page cache around reads
// and truncates, narrowed to the subset of behavior C6 needs to drive
// explicitly rather than leaving implicit in host VFS glue.
package pagecache

import "github.com/coremount/vnodefs/wire"

// Host is the page-cache surface a vnode operation drives for one node.
type Host interface {
	// FlushAndInvalidate writes back any dirty pages and then drops the
	// cached pages for node, per spec.md §4.6 "open": an OPEN reply lacking
	// wire.FlagKeepCache forces this before the new handle is usable.
	FlushAndInvalidate(node wire.NodeID) error

	// ClusterRead reads length bytes at offset through the page cache
	// (buffered I/O path), contrasted with a direct-I/O handle's raw READ
	// dispatch in spec.md §4.6 "read".
	ClusterRead(node wire.NodeID, offset int64, length int) ([]byte, error)

	// ClusterWrite writes data at offset through the page cache.
	ClusterWrite(node wire.NodeID, offset int64, data []byte) (int, error)

	// SetSize informs the host of a new file size after a truncating
	// SETATTR or a direct-I/O write past EOF, so cached pages beyond the
	// new size are dropped (spec.md §4.6 "setattr").
	SetSize(node wire.NodeID, size uint64) error
}

type fakeFile struct {
	data []byte
}

// Fake is an in-memory Host for tests: each node's bytes live in a plain
// slice, FlushAndInvalidate is a no-op recorded for assertions.
type Fake struct {
	files          map[wire.NodeID]*fakeFile
	FlushCallCount map[wire.NodeID]int
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{
		files:          make(map[wire.NodeID]*fakeFile),
		FlushCallCount: make(map[wire.NodeID]int),
	}
}

func (f *Fake) file(node wire.NodeID) *fakeFile {
	ff, ok := f.files[node]
	if !ok {
		ff = &fakeFile{}
		f.files[node] = ff
	}
	return ff
}

func (f *Fake) FlushAndInvalidate(node wire.NodeID) error {
	f.FlushCallCount[node]++
	return nil
}

func (f *Fake) ClusterRead(node wire.NodeID, offset int64, length int) ([]byte, error) {
	ff := f.file(node)
	if offset >= int64(len(ff.data)) {
		return nil, nil
	}
	end := offset + int64(length)
	if end > int64(len(ff.data)) {
		end = int64(len(ff.data))
	}
	out := make([]byte, end-offset)
	copy(out, ff.data[offset:end])
	return out, nil
}

func (f *Fake) ClusterWrite(node wire.NodeID, offset int64, data []byte) (int, error) {
	ff := f.file(node)
	end := offset + int64(len(data))
	if end > int64(len(ff.data)) {
		grown := make([]byte, end)
		copy(grown, ff.data)
		ff.data = grown
	}
	copy(ff.data[offset:end], data)
	return len(data), nil
}

func (f *Fake) SetSize(node wire.NodeID, size uint64) error {
	ff := f.file(node)
	if int64(size) <= int64(len(ff.data)) {
		ff.data = ff.data[:size]
		return nil
	}
	grown := make([]byte, size)
	copy(grown, ff.data)
	ff.data = grown
	return nil
}
