package unix

import (
	"context"

	"github.com/stealthrocket/wasi-aot"
	"golang.org/x/sys/unix"
)

// FD is a host file descriptor implementing wasi.File.
type FD int

var _ wasi.File[FD] = FD(-1)

func (fd FD) FDAdvise(ctx context.Context, offset, length wasi.FileSize, advice wasi.Advice) wasi.Errno {
	err := ignoreEINTR(func() error { return fdadvise(int(fd), int64(offset), int64(length), advice) })
	return wasi.MakeErrno(err)
}

func (fd FD) FDAllocate(ctx context.Context, offset, length wasi.FileSize) wasi.Errno {
	err := ignoreEINTR(func() error { return fallocate(int(fd), int64(offset), int64(length)) })
	return wasi.MakeErrno(err)
}

func (fd FD) FDClose(ctx context.Context) wasi.Errno {
	// EINTR leaves the descriptor state unspecified on Linux, it is assumed
	// to be closed.
	return wasi.MakeErrno(closeTraceEBADF(int(fd)))
}

func (fd FD) FDDataSync(ctx context.Context) wasi.Errno {
	err := ignoreEINTR(func() error { return fdatasync(int(fd)) })
	return wasi.MakeErrno(err)
}

func (fd FD) FDStatGet(ctx context.Context) (wasi.FDStat, wasi.Errno) {
	fl, err := ignoreEINTR2(func() (int, error) {
		return unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	})
	if err != nil {
		return wasi.FDStat{}, wasi.MakeErrno(err)
	}
	var sysStat unix.Stat_t
	if err := ignoreEINTR(func() error { return unix.Fstat(int(fd), &sysStat) }); err != nil {
		return wasi.FDStat{}, wasi.MakeErrno(err)
	}
	stat := wasi.FDStat{
		FileType: makeFileType(uint32(sysStat.Mode)),
		Flags:    makeFDFlags(fl),
	}
	return stat, wasi.ESUCCESS
}

func (fd FD) FDStatSetFlags(ctx context.Context, flags wasi.FDFlags) wasi.Errno {
	fl, err := ignoreEINTR2(func() (int, error) {
		return unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	})
	if err != nil {
		return wasi.MakeErrno(err)
	}
	// The synchronization mode is fixed when the file is opened.
	if syncFlags(flags) != syncFlags(makeFDFlags(fl)) {
		return wasi.ENOTSUP
	}
	if flags.Has(wasi.Append) {
		fl |= unix.O_APPEND
	} else {
		fl &^= unix.O_APPEND
	}
	if flags.Has(wasi.NonBlock) {
		fl |= unix.O_NONBLOCK
	} else {
		fl &^= unix.O_NONBLOCK
	}
	_, err = ignoreEINTR2(func() (int, error) {
		return unix.FcntlInt(uintptr(fd), unix.F_SETFL, fl)
	})
	return wasi.MakeErrno(err)
}

func (fd FD) FDFileStatGet(ctx context.Context) (wasi.FileStat, wasi.Errno) {
	var sysStat unix.Stat_t
	if err := ignoreEINTR(func() error { return unix.Fstat(int(fd), &sysStat) }); err != nil {
		return wasi.FileStat{}, wasi.MakeErrno(err)
	}
	return makeFileStat(&sysStat), wasi.ESUCCESS
}

func (fd FD) FDFileStatSetSize(ctx context.Context, size wasi.FileSize) wasi.Errno {
	err := ignoreEINTR(func() error { return unix.Ftruncate(int(fd), int64(size)) })
	return wasi.MakeErrno(err)
}

func (fd FD) FDFileStatSetTimes(ctx context.Context, accessTime, modifyTime wasi.Timestamp, flags wasi.FSTFlags) wasi.Errno {
	ts := makeTimespecs(accessTime, modifyTime, flags)
	err := ignoreEINTR(func() error { return futimens(int(fd), &ts) })
	return wasi.MakeErrno(err)
}

func (fd FD) FDPread(ctx context.Context, iovecs []wasi.IOVec, offset wasi.FileSize) (wasi.Size, wasi.Errno) {
	n, err := handleEINTR(func() (int, error) { return preadv(int(fd), makeIOVecs(iovecs), int64(offset)) })
	return wasi.Size(n), wasi.MakeErrno(err)
}

func (fd FD) FDPwrite(ctx context.Context, iovecs []wasi.IOVec, offset wasi.FileSize) (wasi.Size, wasi.Errno) {
	n, err := handleEINTR(func() (int, error) { return pwritev(int(fd), makeIOVecs(iovecs), int64(offset)) })
	return wasi.Size(n), wasi.MakeErrno(err)
}

func (fd FD) FDRead(ctx context.Context, iovecs []wasi.IOVec) (wasi.Size, wasi.Errno) {
	n, err := handleEINTR(func() (int, error) { return readv(int(fd), makeIOVecs(iovecs)) })
	return wasi.Size(n), wasi.MakeErrno(err)
}

func (fd FD) FDWrite(ctx context.Context, iovecs []wasi.IOVec) (wasi.Size, wasi.Errno) {
	n, err := handleEINTR(func() (int, error) { return writev(int(fd), makeIOVecs(iovecs)) })
	return wasi.Size(n), wasi.MakeErrno(err)
}

func (fd FD) FDOpenDir(ctx context.Context) (wasi.Dir, wasi.Errno) {
	if _, err := ignoreEINTR2(func() (int64, error) {
		return lseek(int(fd), 0, unix.SEEK_SET)
	}); err != nil {
		return nil, wasi.MakeErrno(err)
	}
	return &dirbuf{fd: int(fd)}, wasi.ESUCCESS
}

func (fd FD) FDSync(ctx context.Context) wasi.Errno {
	err := ignoreEINTR(func() error { return fsync(int(fd)) })
	return wasi.MakeErrno(err)
}

func (fd FD) FDSeek(ctx context.Context, delta wasi.FileDelta, whence wasi.Whence) (wasi.FileSize, wasi.Errno) {
	var sysWhence int
	switch whence {
	case wasi.SeekStart:
		sysWhence = unix.SEEK_SET
	case wasi.SeekCurrent:
		sysWhence = unix.SEEK_CUR
	case wasi.SeekEnd:
		sysWhence = unix.SEEK_END
	default:
		return 0, wasi.EINVAL
	}
	off, err := ignoreEINTR2(func() (int64, error) { return lseek(int(fd), int64(delta), sysWhence) })
	if err != nil {
		return 0, wasi.MakeErrno(err)
	}
	return wasi.FileSize(off), wasi.ESUCCESS
}

func (fd FD) PathCreateDirectory(ctx context.Context, path string) wasi.Errno {
	err := ignoreEINTR(func() error { return unix.Mkdirat(int(fd), path, 0755) })
	return wasi.MakeErrno(err)
}

func (fd FD) PathFileStatGet(ctx context.Context, flags wasi.LookupFlags, path string) (wasi.FileStat, wasi.Errno) {
	var sysStat unix.Stat_t
	if err := ignoreEINTR(func() error {
		return unix.Fstatat(int(fd), path, &sysStat, makeAtFlags(flags))
	}); err != nil {
		return wasi.FileStat{}, wasi.MakeErrno(err)
	}
	return makeFileStat(&sysStat), wasi.ESUCCESS
}

func (fd FD) PathFileStatSetTimes(ctx context.Context, lookupFlags wasi.LookupFlags, path string, accessTime, modifyTime wasi.Timestamp, flags wasi.FSTFlags) wasi.Errno {
	ts := makeTimespecs(accessTime, modifyTime, flags)
	err := ignoreEINTR(func() error {
		return unix.UtimesNanoAt(int(fd), path, ts[:], makeAtFlags(lookupFlags))
	})
	return wasi.MakeErrno(err)
}

func (fd FD) PathLink(ctx context.Context, flags wasi.LookupFlags, oldPath string, newDir FD, newPath string) wasi.Errno {
	var sysFlags int
	if flags.Has(wasi.SymlinkFollow) {
		sysFlags |= unix.AT_SYMLINK_FOLLOW
	}
	err := ignoreEINTR(func() error { return unix.Linkat(int(fd), oldPath, int(newDir), newPath, sysFlags) })
	return wasi.MakeErrno(err)
}

// PathOpen opens path relative to fd. The access mode is derived from the
// requested rights: read and write rights select O_RDWR, write rights alone
// select O_WRONLY, anything else opens the file read-only.
func (fd FD) PathOpen(ctx context.Context, lookupFlags wasi.LookupFlags, path string, openFlags wasi.OpenFlags, rightsBase, rightsInheriting wasi.Rights, fdFlags wasi.FDFlags) (FD, wasi.Errno) {
	oflags := unix.O_CLOEXEC | makeOpenFlags(openFlags, fdFlags)
	if !lookupFlags.Has(wasi.SymlinkFollow) {
		oflags |= unix.O_NOFOLLOW
	}
	switch {
	case openFlags.Has(wasi.OpenDirectory):
		oflags |= unix.O_RDONLY
	case rightsBase.Has(wasi.FDReadRight | wasi.FDWriteRight):
		oflags |= unix.O_RDWR
	case rightsBase.Has(wasi.FDWriteRight):
		oflags |= unix.O_WRONLY
	default:
		oflags |= unix.O_RDONLY
	}

	mode := uint32(0644)
	if (oflags & unix.O_DIRECTORY) != 0 {
		mode = 0
	}
	hostfd, err := ignoreEINTR2(func() (int, error) {
		return unix.Openat(int(fd), path, oflags, mode)
	})
	if err != nil {
		return -1, wasi.MakeErrno(err)
	}
	return FD(hostfd), wasi.ESUCCESS
}

func (fd FD) PathReadLink(ctx context.Context, path string, buffer []byte) (int, wasi.Errno) {
	n, err := ignoreEINTR2(func() (int, error) {
		return unix.Readlinkat(int(fd), path, buffer)
	})
	switch {
	case err != nil:
		return 0, wasi.MakeErrno(err)
	case n == len(buffer):
		// The link may have been truncated.
		return n, wasi.ERANGE
	default:
		return n, wasi.ESUCCESS
	}
}

func (fd FD) PathRemoveDirectory(ctx context.Context, path string) wasi.Errno {
	err := ignoreEINTR(func() error { return unix.Unlinkat(int(fd), path, unix.AT_REMOVEDIR) })
	return wasi.MakeErrno(err)
}

func (fd FD) PathRename(ctx context.Context, oldPath string, newDir FD, newPath string) wasi.Errno {
	err := ignoreEINTR(func() error { return unix.Renameat(int(fd), oldPath, int(newDir), newPath) })
	return wasi.MakeErrno(err)
}

func (fd FD) PathSymlink(ctx context.Context, oldPath string, newPath string) wasi.Errno {
	err := ignoreEINTR(func() error { return unix.Symlinkat(oldPath, int(fd), newPath) })
	return wasi.MakeErrno(err)
}

func (fd FD) PathUnlinkFile(ctx context.Context, path string) wasi.Errno {
	err := ignoreEINTR(func() error { return unix.Unlinkat(int(fd), path, 0) })
	return wasi.MakeErrno(err)
}

func (d *dirbuf) FDReadDir(ctx context.Context, entries []wasi.DirEntry, cookie wasi.DirCookie, bufferSizeBytes int) (int, wasi.Errno) {
	n, err := d.readDirEntries(entries, cookie, bufferSizeBytes)
	return n, wasi.MakeErrno(err)
}

func (d *dirbuf) FDCloseDir(ctx context.Context) wasi.Errno {
	d.buffer = nil
	return wasi.ESUCCESS
}
