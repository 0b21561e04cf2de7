package unix

import (
	"unsafe"

	"github.com/stealthrocket/wasi-aot"
	"golang.org/x/sys/unix"
)

const (
	utimeNow  = unix.UTIME_NOW
	utimeOmit = unix.UTIME_OMIT
)

// O_RSYNC includes the bits of O_SYNC and O_DSYNC.
const oRSync = unix.O_RSYNC

// futimens is utimensat(2) with a NULL path, which x/sys does not expose.
func futimens(fd int, ts *[2]unix.Timespec) error {
	_, _, e := unix.Syscall6(unix.SYS_UTIMENSAT, uintptr(fd), 0, uintptr(unsafe.Pointer(ts)), 0, 0, 0)
	if e != 0 {
		return e
	}
	return nil
}

var fadviseFlags = [...]int{
	wasi.Normal:     unix.FADV_NORMAL,
	wasi.Sequential: unix.FADV_SEQUENTIAL,
	wasi.Random:     unix.FADV_RANDOM,
	wasi.WillNeed:   unix.FADV_WILLNEED,
	wasi.DontNeed:   unix.FADV_DONTNEED,
	wasi.NoReuse:    unix.FADV_NOREUSE,
}

func fdadvise(fd int, offset, length int64, advice wasi.Advice) error {
	if int(advice) >= len(fadviseFlags) {
		return wasi.EINVAL
	}
	return unix.Fadvise(fd, offset, length, fadviseFlags[advice])
}

func fallocate(fd int, offset, length int64) error {
	return unix.Fallocate(fd, 0, offset, length)
}

func dupCloseOnExec(fd int) (int, error) {
	return unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
}

var (
	fdatasync = unix.Fdatasync
	fsync     = unix.Fsync
	lseek     = unix.Seek
	readv     = unix.Readv
	writev    = unix.Writev
	preadv    = unix.Preadv
	pwritev   = unix.Pwritev
)
