package wasi

import "fmt"

// Rights are file descriptor rights, determining which actions may be
// performed on a descriptor.
type Rights uint64

const (
	// FDDataSyncRight is the right to invoke FDDataSync. With PathOpenRight
	// it includes the right to open files with the DSync flag.
	FDDataSyncRight Rights = 1 << iota

	// FDReadRight is the right to invoke FDRead. With FDSeekRight it
	// includes the right to invoke FDPread.
	FDReadRight

	// FDSeekRight is the right to invoke FDSeek. It implies FDTellRight.
	FDSeekRight

	// FDStatSetFlagsRight is the right to invoke FDStatSetFlags.
	FDStatSetFlagsRight

	// FDSyncRight is the right to invoke FDSync. With PathOpenRight it
	// includes the right to open files with the RSync and DSync flags.
	FDSyncRight

	// FDTellRight is the right to invoke FDTell, and FDSeek in a way that
	// leaves the offset unchanged.
	FDTellRight

	// FDWriteRight is the right to invoke FDWrite. With FDSeekRight it
	// includes the right to invoke FDPwrite.
	FDWriteRight

	FDAdviseRight
	FDAllocateRight
	PathCreateDirectoryRight

	// PathCreateFileRight is, with PathOpenRight, the right to invoke
	// PathOpen with OpenCreate.
	PathCreateFileRight

	PathLinkSourceRight
	PathLinkTargetRight
	PathOpenRight
	FDReadDirRight
	PathReadLinkRight
	PathRenameSourceRight
	PathRenameTargetRight
	PathFileStatGetRight

	// PathFileStatSetSizeRight is the right to change the size of a file
	// through a path. With PathOpenRight it includes the right to invoke
	// PathOpen with OpenTruncate.
	PathFileStatSetSizeRight

	PathFileStatSetTimesRight
	FDFileStatGetRight
	FDFileStatSetSizeRight
	FDFileStatSetTimesRight
	PathSymlinkRight
	PathRemoveDirectoryRight
	PathUnlinkFileRight

	// PollFDReadWriteRight is the right to subscribe to read or write
	// readiness of the descriptor.
	PollFDReadWriteRight

	SockShutdownRight
	SockAcceptRight

	// AllRights is the set of all defined rights.
	AllRights Rights = (1 << 30) - 1
)

const (
	// ReadRights are the rights that require the host descriptor to be open
	// for reading.
	ReadRights = FDReadRight | FDReadDirRight

	// WriteRights are the rights that require the host descriptor to be open
	// for writing.
	WriteRights = FDWriteRight | FDAllocateRight | FDFileStatSetSizeRight | FDDataSyncRight

	// StdioRights are installed on the standard input, output and error
	// descriptors.
	StdioRights = FDReadRight | FDStatSetFlagsRight | FDWriteRight | FDFileStatGetRight | PollFDReadWriteRight

	// RegularFileRights are installed on regular files.
	RegularFileRights = FDDataSyncRight | FDReadRight | FDSeekRight | FDStatSetFlagsRight | FDSyncRight |
		FDTellRight | FDWriteRight | FDAdviseRight | FDAllocateRight | FDFileStatGetRight |
		FDFileStatSetSizeRight | FDFileStatSetTimesRight | PollFDReadWriteRight

	// DirectoryRights are installed on directories.
	DirectoryRights = FDStatSetFlagsRight | FDSyncRight | FDAdviseRight | PathCreateDirectoryRight |
		PathCreateFileRight | PathLinkSourceRight | PathLinkTargetRight | PathOpenRight |
		FDReadDirRight | PathReadLinkRight | PathRenameSourceRight | PathRenameTargetRight |
		PathFileStatGetRight | PathFileStatSetSizeRight | PathFileStatSetTimesRight |
		FDFileStatGetRight | FDFileStatSetTimesRight | PathSymlinkRight | PathUnlinkFileRight |
		PathRemoveDirectoryRight | PollFDReadWriteRight

	// InheritingDirectoryRights are the inheriting rights of directories:
	// anything opened beneath a directory is either a directory or a file.
	InheritingDirectoryRights = DirectoryRights | RegularFileRights
)

// Has is true if all the rights in r are set.
func (rights Rights) Has(r Rights) bool {
	return (rights & r) == r
}

// HasAny is true if any of the rights in r is set.
func (rights Rights) HasAny(r Rights) bool {
	return (rights & r) != 0
}

var rightsNames = [...]string{
	"FDDataSyncRight",
	"FDReadRight",
	"FDSeekRight",
	"FDStatSetFlagsRight",
	"FDSyncRight",
	"FDTellRight",
	"FDWriteRight",
	"FDAdviseRight",
	"FDAllocateRight",
	"PathCreateDirectoryRight",
	"PathCreateFileRight",
	"PathLinkSourceRight",
	"PathLinkTargetRight",
	"PathOpenRight",
	"FDReadDirRight",
	"PathReadLinkRight",
	"PathRenameSourceRight",
	"PathRenameTargetRight",
	"PathFileStatGetRight",
	"PathFileStatSetSizeRight",
	"PathFileStatSetTimesRight",
	"FDFileStatGetRight",
	"FDFileStatSetSizeRight",
	"FDFileStatSetTimesRight",
	"PathSymlinkRight",
	"PathRemoveDirectoryRight",
	"PathUnlinkFileRight",
	"PollFDReadWriteRight",
	"SockShutdownRight",
	"SockAcceptRight",
}

func (rights Rights) String() string {
	switch rights {
	case 0:
		return "Rights(0)"
	case AllRights:
		return "AllRights"
	case StdioRights:
		return "StdioRights"
	case RegularFileRights:
		return "RegularFileRights"
	case DirectoryRights:
		return "DirectoryRights"
	case InheritingDirectoryRights:
		return "InheritingDirectoryRights"
	}
	if rights&^AllRights != 0 {
		return fmt.Sprintf("Rights(%#x)", uint64(rights))
	}
	return formatFlags(uint64(rights), rightsNames[:], "Rights")
}
