package unix

import (
	"syscall"
	"time"
	"unsafe"

	"github.com/stealthrocket/wasi-aot"
	"golang.org/x/sys/unix"
)

// Darwin has no futimens(2) flags, these are resolved before setting times.
const (
	utimeNow  = -1
	utimeOmit = -2
)

// There is no O_RSYNC, reads are synchronized with O_SYNC.
const oRSync = unix.O_SYNC

// futimens is emulated with fstat and futimes, so times are truncated to
// microseconds.
func futimens(fd int, ts *[2]unix.Timespec) error {
	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		return err
	}
	now := unix.NsecToTimespec(time.Now().UnixNano())
	current := [2]unix.Timespec{stat.Atim, stat.Mtim}
	tv := make([]unix.Timeval, 2)
	for i, t := range ts {
		switch t.Nsec {
		case utimeNow:
			t = now
		case utimeOmit:
			t = current[i]
		}
		tv[i] = unix.NsecToTimeval(t.Nano())
	}
	return unix.Futimes(fd, tv)
}

// posix_fadvise is not available, the hint is ignored.
func fdadvise(fd int, offset, length int64, advice wasi.Advice) error {
	return nil
}

// fallocate can only grow files from their end with F_PREALLOCATE.
func fallocate(fd int, offset, length int64) error {
	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		return err
	}
	if offset+length <= stat.Size {
		return nil
	}
	if offset != stat.Size {
		return wasi.ENOTSUP
	}
	store := &unix.Fstore_t{
		Flags:   unix.F_ALLOCATEALL,
		Posmode: unix.F_PEOFPOSMODE,
		Length:  length,
	}
	if err := unix.FcntlFstore(uintptr(fd), unix.F_PREALLOCATE, store); err != nil {
		return err
	}
	return unix.Ftruncate(fd, offset+length)
}

func fdatasync(fd int) error {
	if _, _, e := unix.Syscall(unix.SYS_FDATASYNC, uintptr(fd), 0, 0); e != 0 {
		return e
	}
	return nil
}

// fsync(2) does not flush the drive cache on darwin.
func fsync(fd int) error {
	_, err := unix.FcntlInt(uintptr(fd), unix.F_FULLFSYNC, 0)
	return err
}

// unix.Seek misreports errors for offsets above 2^32 on darwin, the syscall
// package issues the 64 bit variant of the call.
func lseek(fd int, offset int64, whence int) (int64, error) {
	return syscall.Seek(fd, offset, whence)
}

func iovecSyscall(trap uintptr, fd int, iovs [][]byte) (int, error) {
	vecs := make([]unix.Iovec, len(iovs))
	for i, b := range iovs {
		vecs[i].Base = unsafe.SliceData(b)
		vecs[i].SetLen(len(b))
	}
	n, _, e := unix.Syscall(trap, uintptr(fd), uintptr(unsafe.Pointer(unsafe.SliceData(vecs))), uintptr(len(vecs)))
	if e != 0 {
		return 0, e
	}
	return int(n), nil
}

func readv(fd int, iovs [][]byte) (int, error) {
	return iovecSyscall(unix.SYS_READV, fd, iovs)
}

func writev(fd int, iovs [][]byte) (int, error) {
	return iovecSyscall(unix.SYS_WRITEV, fd, iovs)
}

// preadv and pwritev are not exposed by libSystem on older releases, each
// buffer is transferred with its own call and the loop stops at the first
// short transfer.
func preadv(fd int, iovs [][]byte, offset int64) (n int, err error) {
	for _, b := range iovs {
		r, err := unix.Pread(fd, b, offset+int64(n))
		n += r
		if err != nil || r < len(b) {
			return n, err
		}
	}
	return n, nil
}

func pwritev(fd int, iovs [][]byte, offset int64) (n int, err error) {
	for _, b := range iovs {
		w, err := unix.Pwrite(fd, b, offset+int64(n))
		n += w
		if err != nil || w < len(b) {
			return n, err
		}
	}
	return n, nil
}

func dupCloseOnExec(fd int) (int, error) {
	return unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
}
