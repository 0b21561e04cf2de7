package wasi

import (
	"fmt"
	"strings"
)

// FD is a guest file descriptor number.
type FD int32

// INode is a file serial number that is unique within its file system.
type INode uint64

// Device identifies the device containing a file system. Combined with INode
// it uniquely identifies a file.
type Device uint64

// FileSize is a non-negative file size or length of a region within a file.
type FileSize uint64

// FileDelta is a relative offset within a file.
type FileDelta int64

// LinkCount is the number of hard links to an INode.
type LinkCount uint64

// Size is a 32 bit length, the native size type of the guest.
type Size uint32

// ExitCode is the code passed to ProcExit.
type ExitCode uint32

// Signal is a signal number passed to ProcRaise.
type Signal uint8

// FileStat are file attributes.
//
// The in-memory layout matches the guest ABI: 64 bytes, little endian.
type FileStat struct {
	Device     Device
	INode      INode
	FileType   FileType
	NLink      LinkCount
	Size       FileSize
	AccessTime Timestamp
	ModifyTime Timestamp
	ChangeTime Timestamp
}

// Whence is the position relative to which FDSeek sets the file offset.
type Whence uint8

const (
	SeekStart Whence = iota
	SeekCurrent
	SeekEnd
)

func (w Whence) String() string {
	switch w {
	case SeekStart:
		return "SeekStart"
	case SeekCurrent:
		return "SeekCurrent"
	case SeekEnd:
		return "SeekEnd"
	default:
		return fmt.Sprintf("Whence(%d)", w)
	}
}

// FileType is the type of a file descriptor or file.
type FileType uint8

const (
	UnknownType FileType = iota
	BlockDeviceType
	CharacterDeviceType
	DirectoryType
	RegularFileType
	SocketDGramType
	SocketStreamType
	SymbolicLinkType
)

var fileTypeStrings = [...]string{
	UnknownType:         "UnknownType",
	BlockDeviceType:     "BlockDeviceType",
	CharacterDeviceType: "CharacterDeviceType",
	DirectoryType:       "DirectoryType",
	RegularFileType:     "RegularFileType",
	SocketDGramType:     "SocketDGramType",
	SocketStreamType:    "SocketStreamType",
	SymbolicLinkType:    "SymbolicLinkType",
}

func (f FileType) String() string {
	if int(f) < len(fileTypeStrings) {
		return fileTypeStrings[f]
	}
	return fmt.Sprintf("FileType(%d)", f)
}

// FDFlags are file descriptor flags.
type FDFlags uint16

const (
	// Append means data written to the file is always appended to the end.
	Append FDFlags = 1 << iota

	// DSync requests synchronized I/O data integrity completion.
	DSync

	// NonBlock selects non-blocking mode.
	NonBlock

	// RSync requests synchronized read I/O operations.
	RSync

	// Sync requests synchronized I/O file integrity completion, the file
	// metadata is synchronized along with its data.
	Sync
)

// Has is true if all the flags in f are set.
func (flags FDFlags) Has(f FDFlags) bool {
	return (flags & f) == f
}

func (flags FDFlags) String() string {
	return formatFlags(uint64(flags), []string{"Append", "DSync", "NonBlock", "RSync", "Sync"}, "FDFlags")
}

// FDStat are file descriptor attributes.
//
// The in-memory layout matches the guest ABI: 24 bytes, little endian.
type FDStat struct {
	FileType FileType
	Flags    FDFlags

	// RightsBase are the rights that apply to this file descriptor.
	RightsBase Rights

	// RightsInheriting is the maximum set of rights that may be installed on
	// descriptors created through this one, for example by PathOpen.
	RightsInheriting Rights
}

// DirCookie is the position of a directory entry. Zero is the start of the
// directory.
type DirCookie uint64

// DirEntry is a directory entry.
//
// On the wire an entry is a 24 bytes header (next cookie, inode, name length,
// type) immediately followed by the name bytes, without a null terminator.
type DirEntry struct {
	Next  DirCookie
	INode INode
	Type  FileType
	Name  []byte
}

// Advice is file access pattern advisory information.
type Advice uint8

const (
	Normal Advice = iota
	Sequential
	Random
	WillNeed
	DontNeed
	NoReuse
)

// FSTFlags select which timestamps FDFileStatSetTimes and
// PathFileStatSetTimes adjust.
type FSTFlags uint16

const (
	// AccessTime sets the access time to the provided value.
	AccessTime FSTFlags = 1 << iota

	// AccessTimeNow sets the access time to the current Realtime clock.
	AccessTimeNow

	// ModifyTime sets the modification time to the provided value.
	ModifyTime

	// ModifyTimeNow sets the modification time to the current Realtime clock.
	ModifyTimeNow
)

// Has is true if all the flags in f are set.
func (flags FSTFlags) Has(f FSTFlags) bool {
	return (flags & f) == f
}

func (flags FSTFlags) String() string {
	return formatFlags(uint64(flags), []string{"AccessTime", "AccessTimeNow", "ModifyTime", "ModifyTimeNow"}, "FSTFlags")
}

// LookupFlags determine how paths are resolved.
type LookupFlags uint32

const (
	// SymlinkFollow expands the path if it resolves to a symbolic link.
	SymlinkFollow LookupFlags = 1 << iota
)

// Has is true if all the flags in f are set.
func (flags LookupFlags) Has(f LookupFlags) bool {
	return (flags & f) == f
}

// OpenFlags are flags used by PathOpen.
type OpenFlags uint16

const (
	// OpenCreate creates the file if it does not exist.
	OpenCreate OpenFlags = 1 << iota

	// OpenDirectory fails if the path is not a directory.
	OpenDirectory

	// OpenExclusive fails if the file already exists.
	OpenExclusive

	// OpenTruncate truncates the file to size 0.
	OpenTruncate
)

// Has is true if all the flags in f are set.
func (flags OpenFlags) Has(f OpenFlags) bool {
	return (flags & f) == f
}

func (flags OpenFlags) String() string {
	return formatFlags(uint64(flags), []string{"OpenCreate", "OpenDirectory", "OpenExclusive", "OpenTruncate"}, "OpenFlags")
}

// PreOpenType identifies the kind of a pre-opened capability.
type PreOpenType uint8

const (
	PreOpenDir PreOpenType = iota
)

// PreStat describes a pre-opened capability.
//
// The in-memory layout matches the guest ABI: 8 bytes, a one byte tag padded
// to 4 bytes followed by the directory name length.
type PreStat struct {
	Type       PreOpenType
	NameLength Size
}

// Sizes of the structures shared with the guest.
const (
	SizeOfDirent   = 24
	SizeOfFDStat   = 24
	SizeOfFileStat = 64
	SizeOfPreStat  = 8
	SizeOfIOVec    = 8
)

func formatFlags(flags uint64, names []string, typ string) string {
	if flags == 0 {
		return typ + "(0)"
	}
	var b strings.Builder
	for i, name := range names {
		if flags&(1<<i) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('|')
		}
		b.WriteString(name)
		flags &^= 1 << i
	}
	if flags != 0 {
		if b.Len() > 0 {
			b.WriteByte('|')
		}
		fmt.Fprintf(&b, "%s(%#x)", typ, flags)
	}
	return b.String()
}
