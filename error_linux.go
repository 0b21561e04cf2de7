package wasi

import "syscall"

// Linux error codes without a dedicated WASI value that are still reported
// to the guest. EWOULDBLOCK, EDEADLOCK and EOPNOTSUPP share their value with
// EAGAIN, EDEADLK and ENOTSUP and need no entry.
var hostErrnoAliases = map[syscall.Errno]Errno{
	syscall.EBADFD:          EBADF,
	syscall.ENODATA:         ENOENT,
	syscall.ENOTBLK:         ENOTSUP,
	syscall.EHOSTDOWN:       EHOSTUNREACH,
	syscall.EPFNOSUPPORT:    EAFNOSUPPORT,
	syscall.ESOCKTNOSUPPORT: EPROTONOSUPPORT,
	syscall.ESHUTDOWN:       EPIPE,
	syscall.ETIME:           ETIMEDOUT,
	syscall.EREMOTEIO:       EIO,
	syscall.ENOMEDIUM:       ENODEV,
	syscall.EUCLEAN:         EIO,
}
