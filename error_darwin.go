package wasi

import "syscall"

// Darwin error codes without a dedicated WASI value that are still reported
// to the guest. Unlike Linux, EOPNOTSUPP is distinct from ENOTSUP.
var hostErrnoAliases = map[syscall.Errno]Errno{
	syscall.EOPNOTSUPP:      ENOTSUP,
	syscall.ENOATTR:         ENOENT,
	syscall.ENODATA:         ENOENT,
	syscall.ENOTBLK:         ENOTSUP,
	syscall.EHOSTDOWN:       EHOSTUNREACH,
	syscall.EPFNOSUPPORT:    EAFNOSUPPORT,
	syscall.ESOCKTNOSUPPORT: EPROTONOSUPPORT,
	syscall.ESHUTDOWN:       EPIPE,
	syscall.ETIME:           ETIMEDOUT,
	syscall.EFTYPE:          EINVAL,
}
