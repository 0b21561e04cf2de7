package wasi

import "fmt"

// Errno is an error code returned by WASI functions.
//
// The numeric values are part of the ABI: guest code compares the value
// returned by each host function against these constants.
type Errno uint16

const (
	// ESUCCESS indicates that the call completed successfully.
	ESUCCESS Errno = iota
	E2BIG
	EACCES
	EADDRINUSE
	EADDRNOTAVAIL
	EAFNOSUPPORT
	EAGAIN
	EALREADY
	EBADF
	EBADMSG
	EBUSY
	ECANCELED
	ECHILD
	ECONNABORTED
	ECONNREFUSED
	ECONNRESET
	EDEADLK
	EDESTADDRREQ
	EDOM
	EDQUOT
	EEXIST
	EFAULT
	EFBIG
	EHOSTUNREACH
	EIDRM
	EILSEQ
	EINPROGRESS
	EINTR
	EINVAL
	EIO
	EISCONN
	EISDIR
	ELOOP
	EMFILE
	EMLINK
	EMSGSIZE
	EMULTIHOP
	ENAMETOOLONG
	ENETDOWN
	ENETRESET
	ENETUNREACH
	ENFILE
	ENOBUFS
	ENODEV
	ENOENT
	ENOEXEC
	ENOLCK
	ENOLINK
	ENOMEM
	ENOMSG
	ENOPROTOOPT
	ENOSPC
	ENOSYS
	ENOTCONN
	ENOTDIR
	ENOTEMPTY
	ENOTRECOVERABLE
	ENOTSOCK
	ENOTSUP
	ENOTTY
	ENXIO
	EOVERFLOW
	EOWNERDEAD
	EPERM
	EPIPE
	EPROTO
	EPROTONOSUPPORT
	EPROTOTYPE
	ERANGE
	EROFS
	ESPIPE
	ESRCH
	ESTALE
	ETIMEDOUT
	ETXTBSY
	EXDEV
	ENOTCAPABLE

	numErrno
)

// Error returns a human readable description of e.
func (e Errno) Error() string {
	if e < numErrno {
		return errnoTable[e].text
	}
	return fmt.Sprintf("Errno(%d)", uint16(e))
}

// Name returns the symbolic name of e, for example "EBADF".
func (e Errno) Name() string {
	if e < numErrno {
		return errnoTable[e].name
	}
	return fmt.Sprintf("Errno(%d)", uint16(e))
}

func (e Errno) String() string {
	return e.Name()
}

var errnoTable = [numErrno]struct{ name, text string }{
	ESUCCESS:        {"ESUCCESS", "No error occurred"},
	E2BIG:           {"E2BIG", "Argument list too long"},
	EACCES:          {"EACCES", "Permission denied"},
	EADDRINUSE:      {"EADDRINUSE", "Address already in use"},
	EADDRNOTAVAIL:   {"EADDRNOTAVAIL", "Address not available"},
	EAFNOSUPPORT:    {"EAFNOSUPPORT", "Address family not supported"},
	EAGAIN:          {"EAGAIN", "Resource temporarily unavailable"},
	EALREADY:        {"EALREADY", "Connection already in progress"},
	EBADF:           {"EBADF", "Bad file descriptor"},
	EBADMSG:         {"EBADMSG", "Bad message"},
	EBUSY:           {"EBUSY", "Device or resource busy"},
	ECANCELED:       {"ECANCELED", "Operation canceled"},
	ECHILD:          {"ECHILD", "No child processes"},
	ECONNABORTED:    {"ECONNABORTED", "Connection aborted"},
	ECONNREFUSED:    {"ECONNREFUSED", "Connection refused"},
	ECONNRESET:      {"ECONNRESET", "Connection reset by peer"},
	EDEADLK:         {"EDEADLK", "Resource deadlock would occur"},
	EDESTADDRREQ:    {"EDESTADDRREQ", "Destination address required"},
	EDOM:            {"EDOM", "Mathematics argument out of domain of function"},
	EDQUOT:          {"EDQUOT", "Disk quota exceeded"},
	EEXIST:          {"EEXIST", "File exists"},
	EFAULT:          {"EFAULT", "Bad address"},
	EFBIG:           {"EFBIG", "File too large"},
	EHOSTUNREACH:    {"EHOSTUNREACH", "Host is unreachable"},
	EIDRM:           {"EIDRM", "Identifier removed"},
	EILSEQ:          {"EILSEQ", "Illegal byte sequence"},
	EINPROGRESS:     {"EINPROGRESS", "Operation in progress"},
	EINTR:           {"EINTR", "Interrupted function"},
	EINVAL:          {"EINVAL", "Invalid argument"},
	EIO:             {"EIO", "I/O error"},
	EISCONN:         {"EISCONN", "Socket is connected"},
	EISDIR:          {"EISDIR", "Is a directory"},
	ELOOP:           {"ELOOP", "Too many levels of symbolic links"},
	EMFILE:          {"EMFILE", "File descriptor value too large"},
	EMLINK:          {"EMLINK", "Too many links"},
	EMSGSIZE:        {"EMSGSIZE", "Message too large"},
	EMULTIHOP:       {"EMULTIHOP", "Multihop attempted"},
	ENAMETOOLONG:    {"ENAMETOOLONG", "Filename too long"},
	ENETDOWN:        {"ENETDOWN", "Network is down"},
	ENETRESET:       {"ENETRESET", "Connection aborted by network"},
	ENETUNREACH:     {"ENETUNREACH", "Network unreachable"},
	ENFILE:          {"ENFILE", "Too many files open in system"},
	ENOBUFS:         {"ENOBUFS", "No buffer space available"},
	ENODEV:          {"ENODEV", "No such device"},
	ENOENT:          {"ENOENT", "No such file or directory"},
	ENOEXEC:         {"ENOEXEC", "Executable file format error"},
	ENOLCK:          {"ENOLCK", "No locks available"},
	ENOLINK:         {"ENOLINK", "Link has been severed"},
	ENOMEM:          {"ENOMEM", "Not enough space"},
	ENOMSG:          {"ENOMSG", "No message of the desired type"},
	ENOPROTOOPT:     {"ENOPROTOOPT", "Protocol not available"},
	ENOSPC:          {"ENOSPC", "No space left on device"},
	ENOSYS:          {"ENOSYS", "Function not supported"},
	ENOTCONN:        {"ENOTCONN", "The socket is not connected"},
	ENOTDIR:         {"ENOTDIR", "Not a directory or a symbolic link to a directory"},
	ENOTEMPTY:       {"ENOTEMPTY", "Directory not empty"},
	ENOTRECOVERABLE: {"ENOTRECOVERABLE", "State not recoverable"},
	ENOTSOCK:        {"ENOTSOCK", "Not a socket"},
	ENOTSUP:         {"ENOTSUP", "Not supported"},
	ENOTTY:          {"ENOTTY", "Inappropriate I/O control operation"},
	ENXIO:           {"ENXIO", "No such device or address"},
	EOVERFLOW:       {"EOVERFLOW", "Value too large to be stored in data type"},
	EOWNERDEAD:      {"EOWNERDEAD", "Previous owner died"},
	EPERM:           {"EPERM", "Operation not permitted"},
	EPIPE:           {"EPIPE", "Broken pipe"},
	EPROTO:          {"EPROTO", "Protocol error"},
	EPROTONOSUPPORT: {"EPROTONOSUPPORT", "Protocol not supported"},
	EPROTOTYPE:      {"EPROTOTYPE", "Protocol wrong type for socket"},
	ERANGE:          {"ERANGE", "Result too large"},
	EROFS:           {"EROFS", "Read-only file system"},
	ESPIPE:          {"ESPIPE", "Invalid seek"},
	ESRCH:           {"ESRCH", "No such process"},
	ESTALE:          {"ESTALE", "Stale file handle"},
	ETIMEDOUT:       {"ETIMEDOUT", "Connection timed out"},
	ETXTBSY:         {"ETXTBSY", "Text file busy"},
	EXDEV:           {"EXDEV", "Cross-device link"},
	ENOTCAPABLE:     {"ENOTCAPABLE", "Capabilities insufficient"},
}
