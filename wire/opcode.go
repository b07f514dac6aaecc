// Package wire defines the data model of the wire protocol spoken to the
// user-space daemon: the opcode set, node and handle identifiers, and the
// request/reply shapes that the vnode layer builds and consumes.
//
// The protocol framing and ticket dispatcher themselves — the IPC layer that
// turns an Op into bytes on a socket and back — are out of scope here and
// are represented only by the Transport interface in transport.go.
package wire

// Op identifies one entry in the protocol's request/reply opcode set.
type Op uint32

const (
	OpLookup Op = iota
	OpForget
	OpGetattr
	OpSetattr
	OpReadlink
	OpSymlink
	OpMknod
	OpMkdir
	OpUnlink
	OpRmdir
	OpRename
	OpLink
	OpOpen
	OpRead
	OpWrite
	OpStatfs
	OpRelease
	OpFsync
	OpSetxattr
	OpGetxattr
	OpListxattr
	OpRemovexattr
	OpFlush
	OpInit
	OpOpendir
	OpReaddir
	OpReleasedir
	OpFsyncdir
	OpAccess
	OpCreate
	OpInterrupt
	OpBmap
	OpDestroy
	OpIoctl
	OpExchange

	opCount
)

// String names follow the wire opcode exactly, for use in logs/metrics.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "UNKNOWN"
}

var opNames = [opCount]string{
	OpLookup:      "LOOKUP",
	OpForget:      "FORGET",
	OpGetattr:     "GETATTR",
	OpSetattr:     "SETATTR",
	OpReadlink:    "READLINK",
	OpSymlink:     "SYMLINK",
	OpMknod:       "MKNOD",
	OpMkdir:       "MKDIR",
	OpUnlink:      "UNLINK",
	OpRmdir:       "RMDIR",
	OpRename:      "RENAME",
	OpLink:        "LINK",
	OpOpen:        "OPEN",
	OpRead:        "READ",
	OpWrite:       "WRITE",
	OpStatfs:      "STATFS",
	OpRelease:     "RELEASE",
	OpFsync:       "FSYNC",
	OpSetxattr:    "SETXATTR",
	OpGetxattr:    "GETXATTR",
	OpListxattr:   "LISTXATTR",
	OpRemovexattr: "REMOVEXATTR",
	OpFlush:       "FLUSH",
	OpInit:        "INIT",
	OpOpendir:     "OPENDIR",
	OpReaddir:     "READDIR",
	OpReleasedir:  "RELEASEDIR",
	OpFsyncdir:    "FSYNCDIR",
	OpAccess:      "ACCESS",
	OpCreate:      "CREATE",
	OpInterrupt:   "INTERRUPT",
	OpBmap:        "BMAP",
	OpDestroy:     "DESTROY",
	OpIoctl:       "IOCTL",
	OpExchange:    "EXCHANGE",
}

// NumOps is the size of the opcode set, for sizing bitmaps.
const NumOps = int(opCount)

// NodeID is the daemon-assigned, 64-bit opaque identifier for a filesystem
// object. It is stable for the object's daemon-side lifetime.
type NodeID uint64

// RootNodeID is the distinguished constant identifying the mount root.
const RootNodeID NodeID = 1

// HandleID is the daemon-assigned identifier for an open file/dir handle.
type HandleID uint64

// AccessClass selects one of the three file-handle slots a node may have
// open concurrently.
type AccessClass int

const (
	ClassRDONLY AccessClass = iota
	ClassWRONLY
	ClassRDWR

	numAccessClasses
)

// NumAccessClasses sizes the fufh[3] array.
const NumAccessClasses = int(numAccessClasses)

func (c AccessClass) String() string {
	switch c {
	case ClassRDONLY:
		return "RDONLY"
	case ClassWRONLY:
		return "WRONLY"
	case ClassRDWR:
		return "RDWR"
	default:
		return "UNKNOWN"
	}
}
