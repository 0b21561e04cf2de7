//go:build unix

package wasi

import (
	"context"
	"errors"
	"syscall"
)

// MakeErrno converts an error returned by a host system call to the matching
// WASI error code.
//
// Errno values pass through unchanged. A syscall.Errno that has no WASI
// equivalent is a fatal condition: the translation table is incomplete for
// the host and the function raises an UnmappedErrno trap rather than hand the
// guest a misleading code.
func MakeErrno(err error) Errno {
	if err == nil {
		return ESUCCESS
	}
	if err == syscall.EAGAIN {
		return EAGAIN
	}
	return makeErrnoSlow(err)
}

func makeErrnoSlow(err error) Errno {
	switch {
	case errors.Is(err, context.Canceled):
		return ECANCELED
	case errors.Is(err, context.DeadlineExceeded):
		return ETIMEDOUT
	}
	var errno Errno
	if errors.As(err, &errno) {
		return errno
	}
	var sysErrno syscall.Errno
	if errors.As(err, &sysErrno) {
		if sysErrno == 0 {
			return ESUCCESS
		}
		return syscallErrnoToWASI(sysErrno)
	}
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return ETIMEDOUT
	}
	return EIO
}

// Syscall returns the host error code equivalent to e. ESUCCESS and
// ENOTCAPABLE map to zero since the host has no equivalent.
func (e Errno) Syscall() syscall.Errno {
	if e < numErrno {
		return hostErrnos[e]
	}
	return 0
}

func syscallErrnoToWASI(err syscall.Errno) Errno {
	if errno, ok := wasiErrnos[err]; ok {
		return errno
	}
	Raise(UnmappedErrno, "host errno %d (%s) has no WASI equivalent", int(err), err.Error())
	panic("unreachable")
}

var hostErrnos = [numErrno]syscall.Errno{
	E2BIG:           syscall.E2BIG,
	EACCES:          syscall.EACCES,
	EADDRINUSE:      syscall.EADDRINUSE,
	EADDRNOTAVAIL:   syscall.EADDRNOTAVAIL,
	EAFNOSUPPORT:    syscall.EAFNOSUPPORT,
	EAGAIN:          syscall.EAGAIN,
	EALREADY:        syscall.EALREADY,
	EBADF:           syscall.EBADF,
	EBADMSG:         syscall.EBADMSG,
	EBUSY:           syscall.EBUSY,
	ECANCELED:       syscall.ECANCELED,
	ECHILD:          syscall.ECHILD,
	ECONNABORTED:    syscall.ECONNABORTED,
	ECONNREFUSED:    syscall.ECONNREFUSED,
	ECONNRESET:      syscall.ECONNRESET,
	EDEADLK:         syscall.EDEADLK,
	EDESTADDRREQ:    syscall.EDESTADDRREQ,
	EDOM:            syscall.EDOM,
	EDQUOT:          syscall.EDQUOT,
	EEXIST:          syscall.EEXIST,
	EFAULT:          syscall.EFAULT,
	EFBIG:           syscall.EFBIG,
	EHOSTUNREACH:    syscall.EHOSTUNREACH,
	EIDRM:           syscall.EIDRM,
	EILSEQ:          syscall.EILSEQ,
	EINPROGRESS:     syscall.EINPROGRESS,
	EINTR:           syscall.EINTR,
	EINVAL:          syscall.EINVAL,
	EIO:             syscall.EIO,
	EISCONN:         syscall.EISCONN,
	EISDIR:          syscall.EISDIR,
	ELOOP:           syscall.ELOOP,
	EMFILE:          syscall.EMFILE,
	EMLINK:          syscall.EMLINK,
	EMSGSIZE:        syscall.EMSGSIZE,
	EMULTIHOP:       syscall.EMULTIHOP,
	ENAMETOOLONG:    syscall.ENAMETOOLONG,
	ENETDOWN:        syscall.ENETDOWN,
	ENETRESET:       syscall.ENETRESET,
	ENETUNREACH:     syscall.ENETUNREACH,
	ENFILE:          syscall.ENFILE,
	ENOBUFS:         syscall.ENOBUFS,
	ENODEV:          syscall.ENODEV,
	ENOENT:          syscall.ENOENT,
	ENOEXEC:         syscall.ENOEXEC,
	ENOLCK:          syscall.ENOLCK,
	ENOLINK:         syscall.ENOLINK,
	ENOMEM:          syscall.ENOMEM,
	ENOMSG:          syscall.ENOMSG,
	ENOPROTOOPT:     syscall.ENOPROTOOPT,
	ENOSPC:          syscall.ENOSPC,
	ENOSYS:          syscall.ENOSYS,
	ENOTCONN:        syscall.ENOTCONN,
	ENOTDIR:         syscall.ENOTDIR,
	ENOTEMPTY:       syscall.ENOTEMPTY,
	ENOTRECOVERABLE: syscall.ENOTRECOVERABLE,
	ENOTSOCK:        syscall.ENOTSOCK,
	ENOTSUP:         syscall.ENOTSUP,
	ENOTTY:          syscall.ENOTTY,
	ENXIO:           syscall.ENXIO,
	EOVERFLOW:       syscall.EOVERFLOW,
	EOWNERDEAD:      syscall.EOWNERDEAD,
	EPERM:           syscall.EPERM,
	EPIPE:           syscall.EPIPE,
	EPROTO:          syscall.EPROTO,
	EPROTONOSUPPORT: syscall.EPROTONOSUPPORT,
	EPROTOTYPE:      syscall.EPROTOTYPE,
	ERANGE:          syscall.ERANGE,
	EROFS:           syscall.EROFS,
	ESPIPE:          syscall.ESPIPE,
	ESRCH:           syscall.ESRCH,
	ESTALE:          syscall.ESTALE,
	ETIMEDOUT:       syscall.ETIMEDOUT,
	ETXTBSY:         syscall.ETXTBSY,
	EXDEV:           syscall.EXDEV,
}

// wasiErrnos is the reverse of hostErrnos, extended with the host specific
// aliases declared in hostErrnoAliases.
var wasiErrnos = func() map[syscall.Errno]Errno {
	m := make(map[syscall.Errno]Errno, len(hostErrnos)+len(hostErrnoAliases))
	for errno, sysErrno := range hostErrnos {
		if sysErrno != 0 {
			m[sysErrno] = Errno(errno)
		}
	}
	for sysErrno, errno := range hostErrnoAliases {
		m[sysErrno] = errno
	}
	return m
}()
