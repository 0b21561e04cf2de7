package unix

import (
	"unsafe"

	"github.com/stealthrocket/wasi-aot"
	"golang.org/x/exp/slog"
	"golang.org/x/sys/unix"
)

func makeFileStat(s *unix.Stat_t) wasi.FileStat {
	return wasi.FileStat{
		FileType:   makeFileType(uint32(s.Mode)),
		Device:     wasi.Device(s.Dev),
		INode:      wasi.INode(s.Ino),
		NLink:      wasi.LinkCount(s.Nlink),
		Size:       wasi.FileSize(s.Size),
		AccessTime: wasi.TimespecToTimestamp(int64(s.Atim.Sec), int64(s.Atim.Nsec)),
		ModifyTime: wasi.TimespecToTimestamp(int64(s.Mtim.Sec), int64(s.Mtim.Nsec)),
		ChangeTime: wasi.TimespecToTimestamp(int64(s.Ctim.Sec), int64(s.Ctim.Nsec)),
	}
}

func makeFileType(mode uint32) wasi.FileType {
	switch mode & unix.S_IFMT { // see stat(2)
	case unix.S_IFCHR:
		return wasi.CharacterDeviceType
	case unix.S_IFDIR:
		return wasi.DirectoryType
	case unix.S_IFBLK:
		return wasi.BlockDeviceType
	case unix.S_IFREG:
		return wasi.RegularFileType
	case unix.S_IFLNK:
		return wasi.SymbolicLinkType
	case unix.S_IFSOCK:
		return wasi.SocketStreamType
	default:
		// e.g. S_IFIFO
		return wasi.UnknownType
	}
}

func makeDirentType(typ uint8) wasi.FileType {
	switch typ {
	case unix.DT_BLK:
		return wasi.BlockDeviceType
	case unix.DT_CHR:
		return wasi.CharacterDeviceType
	case unix.DT_DIR:
		return wasi.DirectoryType
	case unix.DT_LNK:
		return wasi.SymbolicLinkType
	case unix.DT_REG:
		return wasi.RegularFileType
	case unix.DT_SOCK:
		return wasi.SocketStreamType
	default: // DT_FIFO, DT_UNKNOWN
		return wasi.UnknownType
	}
}

func makeFDFlags(fl int) (flags wasi.FDFlags) {
	if (fl & unix.O_APPEND) != 0 {
		flags |= wasi.Append
	}
	if (fl & unix.O_DSYNC) != 0 {
		flags |= wasi.DSync
	}
	if (fl & unix.O_NONBLOCK) != 0 {
		flags |= wasi.NonBlock
	}
	if (fl & oRSync) == oRSync {
		flags |= wasi.RSync
	}
	if (fl & unix.O_SYNC) == unix.O_SYNC {
		flags |= wasi.Sync
	}
	return flags
}

// syncFlags are the synchronization flags of fdFlags as the host reports
// them back once a file is opened with them.
func syncFlags(fdFlags wasi.FDFlags) wasi.FDFlags {
	const mask = wasi.DSync | wasi.RSync | wasi.Sync
	return makeFDFlags(makeOpenFlags(0, fdFlags&mask)) & mask
}

func makeOpenFlags(openFlags wasi.OpenFlags, fdFlags wasi.FDFlags) (oflags int) {
	if openFlags.Has(wasi.OpenCreate) {
		oflags |= unix.O_CREAT
	}
	if openFlags.Has(wasi.OpenDirectory) {
		oflags |= unix.O_DIRECTORY
	}
	if openFlags.Has(wasi.OpenExclusive) {
		oflags |= unix.O_EXCL
	}
	if openFlags.Has(wasi.OpenTruncate) {
		oflags |= unix.O_TRUNC
	}
	if fdFlags.Has(wasi.Append) {
		oflags |= unix.O_APPEND
	}
	if fdFlags.Has(wasi.DSync) {
		oflags |= unix.O_DSYNC
	}
	if fdFlags.Has(wasi.NonBlock) {
		oflags |= unix.O_NONBLOCK
	}
	if fdFlags.Has(wasi.RSync) {
		oflags |= oRSync
	}
	if fdFlags.Has(wasi.Sync) {
		oflags |= unix.O_SYNC
	}
	return oflags
}

func makeAtFlags(flags wasi.LookupFlags) int {
	if flags.Has(wasi.SymlinkFollow) {
		return 0
	}
	return unix.AT_SYMLINK_NOFOLLOW
}

func makeTimespecs(accessTime, modifyTime wasi.Timestamp, flags wasi.FSTFlags) [2]unix.Timespec {
	return [2]unix.Timespec{
		makeTimespec(accessTime, flags.Has(wasi.AccessTime), flags.Has(wasi.AccessTimeNow)),
		makeTimespec(modifyTime, flags.Has(wasi.ModifyTime), flags.Has(wasi.ModifyTimeNow)),
	}
}

func makeTimespec(t wasi.Timestamp, set, setNow bool) unix.Timespec {
	switch {
	case setNow:
		return unix.Timespec{Nsec: utimeNow}
	case set:
		return unix.NsecToTimespec(int64(t))
	default:
		return unix.Timespec{Nsec: utimeOmit}
	}
}

var _ []byte = (wasi.IOVec)(nil)

func makeIOVecs(iovecs []wasi.IOVec) [][]byte {
	return *(*[][]byte)(unsafe.Pointer(&iovecs))
}

// ignoreEINTR retries f until it completes without being interrupted. The Go
// runtime delivers signals for its own purposes, those are never reported to
// the guest.
func ignoreEINTR(f func() error) error {
	for {
		if err := f(); err != unix.EINTR {
			return err
		}
	}
}

func ignoreEINTR2[T any](f func() (T, error)) (T, error) {
	for {
		v, err := f()
		if err != unix.EINTR {
			return v, err
		}
	}
}

// handleEINTR is like ignoreEINTR2 for reads and writes: a transfer that was
// interrupted after moving some bytes reports the partial count.
func handleEINTR(f func() (int, error)) (int, error) {
	for {
		n, err := f()
		if err != unix.EINTR {
			return n, err
		}
		if n > 0 {
			return n, nil
		}
	}
}

// closeTraceEBADF closes fd. Closing a descriptor that is already closed is
// a bug in the descriptor accounting, it is logged.
func closeTraceEBADF(fd int) error {
	if fd < 0 {
		return unix.EBADF
	}
	err := unix.Close(fd)
	if err == unix.EBADF {
		slog.Warn("close of invalid host file descriptor", "fd", fd)
	}
	return err
}
