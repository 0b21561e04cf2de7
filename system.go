package wasi

import "context"

// System is the host side of the WASI preview 1 interface.
//
// Methods receive decoded arguments and return results by value; they never
// access guest memory. Marshalling to and from the guest ABI is the job of
// the abi package.
type System interface {
	Environment
	Clocks
	Files
	Paths
	Process

	// Close releases all host resources held by the system.
	Close(ctx context.Context) error
}

// Environment exposes the command line and environment of the guest. Sizes
// count null terminators.
type Environment interface {
	ArgsSizesGet(ctx context.Context) (argCount int, stringBytes int, errno Errno)
	ArgsGet(ctx context.Context) ([]string, Errno)
	EnvironSizesGet(ctx context.Context) (envCount int, stringBytes int, errno Errno)

	// EnvironGet returns "key=value" strings.
	EnvironGet(ctx context.Context) ([]string, Errno)
}

// Clocks gives access to the realtime and monotonic clocks. EINVAL is
// returned for other clock identifiers.
type Clocks interface {
	ClockResGet(ctx context.Context, id ClockID) (Timestamp, Errno)
	ClockTimeGet(ctx context.Context, id ClockID, precision Timestamp) (Timestamp, Errno)
}

// Files are the operations on open file descriptors. Each of them checks the
// rights of the descriptor before reaching the host.
type Files interface {
	FDAdvise(ctx context.Context, fd FD, offset FileSize, length FileSize, advice Advice) Errno
	FDAllocate(ctx context.Context, fd FD, offset FileSize, length FileSize) Errno
	FDClose(ctx context.Context, fd FD) Errno
	FDDataSync(ctx context.Context, fd FD) Errno

	// FDStatGet returns the stored rights and file type of fd, with the flags
	// currently set on the host descriptor.
	FDStatGet(ctx context.Context, fd FD) (FDStat, Errno)
	FDStatSetFlags(ctx context.Context, fd FD, flags FDFlags) Errno

	// FDStatSetRights narrows the rights of fd. Adding a right fails with
	// ENOTCAPABLE.
	FDStatSetRights(ctx context.Context, fd FD, rightsBase, rightsInheriting Rights) Errno

	FDFileStatGet(ctx context.Context, fd FD) (FileStat, Errno)

	// FDFileStatSetSize truncates or zero-extends the file.
	FDFileStatSetSize(ctx context.Context, fd FD, size FileSize) Errno
	FDFileStatSetTimes(ctx context.Context, fd FD, accessTime, modifyTime Timestamp, flags FSTFlags) Errno

	// FDPread and FDPwrite leave the file offset unchanged.
	FDPread(ctx context.Context, fd FD, iovecs []IOVec, offset FileSize) (Size, Errno)
	FDPwrite(ctx context.Context, fd FD, iovecs []IOVec, offset FileSize) (Size, Errno)

	// FDPreStatGet and FDPreStatDirName describe preopened directories,
	// EBADF is returned for any other descriptor.
	FDPreStatGet(ctx context.Context, fd FD) (PreStat, Errno)
	FDPreStatDirName(ctx context.Context, fd FD) (string, Errno)

	FDRead(ctx context.Context, fd FD, iovecs []IOVec) (Size, Errno)

	// FDReadDir fills entries starting at cookie. It stops before the first
	// entry that would not fit in bufferSizeBytes once encoded, so only whole
	// entries are returned. The Next cookie of the last entry resumes the
	// listing.
	FDReadDir(ctx context.Context, fd FD, entries []DirEntry, cookie DirCookie, bufferSizeBytes int) (int, Errno)

	// FDRenumber moves the descriptor from onto to, closing to first.
	FDRenumber(ctx context.Context, from, to FD) Errno
	FDSeek(ctx context.Context, fd FD, offset FileDelta, whence Whence) (FileSize, Errno)
	FDSync(ctx context.Context, fd FD) Errno
	FDTell(ctx context.Context, fd FD) (FileSize, Errno)
	FDWrite(ctx context.Context, fd FD, iovecs []IOVec) (Size, Errno)
}

// Paths are the operations resolving a path relative to a directory
// descriptor. Absolute paths and paths escaping the directory fail with
// EPERM.
type Paths interface {
	PathCreateDirectory(ctx context.Context, fd FD, path string) Errno
	PathFileStatGet(ctx context.Context, fd FD, lookupFlags LookupFlags, path string) (FileStat, Errno)
	PathFileStatSetTimes(ctx context.Context, fd FD, lookupFlags LookupFlags, path string, accessTime, modifyTime Timestamp, flags FSTFlags) Errno
	PathLink(ctx context.Context, oldFD FD, oldFlags LookupFlags, oldPath string, newFD FD, newPath string) Errno

	// PathOpen derives the host access mode from rightsBase: read-write when
	// it holds both FDReadRight and FDWriteRight, write-only with
	// FDWriteRight alone, read-only otherwise. The requested rights must be
	// a subset of the inheriting rights of fd.
	PathOpen(ctx context.Context, fd FD, dirFlags LookupFlags, path string, openFlags OpenFlags, rightsBase, rightsInheriting Rights, fdFlags FDFlags) (FD, Errno)

	// PathReadLink copies the link target to buffer and returns its length.
	PathReadLink(ctx context.Context, fd FD, path string, buffer []byte) (int, Errno)
	PathRemoveDirectory(ctx context.Context, fd FD, path string) Errno
	PathRename(ctx context.Context, fd FD, oldPath string, newFD FD, newPath string) Errno
	PathSymlink(ctx context.Context, oldPath string, fd FD, newPath string) Errno
	PathUnlinkFile(ctx context.Context, fd FD, path string) Errno
}

// Process covers the remaining process level calls.
type Process interface {
	// ProcExit lets the system react to the guest exiting. The caller
	// unwinds the guest once it returns.
	ProcExit(ctx context.Context, exitCode ExitCode) Errno
	SchedYield(ctx context.Context) Errno
	RandomGet(ctx context.Context, b []byte) Errno
}

// SizesGet returns the count and encoded size of a list of null terminated
// strings, as reported by ArgsSizesGet and EnvironSizesGet.
func SizesGet(values []string) (count, size int) {
	for _, value := range values {
		size += len(value) + 1
	}
	return len(values), size
}
