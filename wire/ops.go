package wire

import (
	"os"
	"time"
)

// Attr mirrors the attribute fields the daemon returns for GETATTR/LOOKUP/
// entry replies.
type Attr struct {
	Mode  os.FileMode
	Size  uint64
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
	Uid   uint32
	Gid   uint32
	Nlink uint32
	Rdev  uint32
}

// OpenReplyFlag carries the bits an OPEN/CREATE/OPENDIR reply may set.
type OpenReplyFlag uint32

const (
	FlagDirectIO OpenReplyFlag = 1 << iota
	FlagPurgeUBC
	FlagPurgeAttr
	FlagKeepCache
	FlagNonSeekable
)

// EntryReply is returned by LOOKUP, MKNOD, MKDIR, SYMLINK, LINK and CREATE.
type EntryReply struct {
	NodeID        NodeID
	Generation    uint64
	EntryValid    time.Duration
	AttrValid     time.Duration
	Attr          Attr
}

// OpenReply is returned by OPEN, OPENDIR and (combined with EntryReply) by
// CREATE.
type OpenReply struct {
	Handle HandleID
	Flags  OpenReplyFlag
}

// CreateReply is the combined entry+open-out CREATE returns in one round
// trip (spec.md §4.2 "Create fast path").
type CreateReply struct {
	Entry EntryReply
	Open  OpenReply
}

// GetattrReply is returned by GETATTR.
type GetattrReply struct {
	Attr      Attr
	AttrValid time.Duration
}

// StatfsReply is returned by STATFS.
type StatfsReply struct {
	Blocks, BlocksFree, BlocksAvail uint64
	Files, FilesFree                uint64
	BlockSize, IoSize, NameLen       uint32
}

// ReadReply is returned by READ.
type ReadReply struct {
	Data []byte
}

// WriteReply is returned by WRITE.
type WriteReply struct {
	Size uint32
}

// Dirent is one entry of a READDIR reply stream.
type Dirent struct {
	NodeID NodeID
	Name   string
	Type   os.FileMode
	Offset uint64
}

// ReaddirReply is returned by READDIR.
type ReaddirReply struct {
	Entries []Dirent
	Eof     bool
}

// XattrReply is returned by GETXATTR/LISTXATTR.
type XattrReply struct {
	Data []byte
	Size uint32 // when the caller asked for size only
}

// IoctlReply is returned by IOCTL.
type IoctlReply struct {
	Result int32
	Out    []byte
}

// BmapReply is returned by BMAP: the physical block number underlying a
// logical block of the file, for blockmap's delegation to the host
// buffer-cache layer.
type BmapReply struct {
	Block uint64
}
