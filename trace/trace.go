// Package trace records the WASI calls made by a guest.
//
// A System wraps a wasi.System and emits one Record per call to a Sink, with
// the decoded arguments, the result, the errno and the time spent in the
// host.
package trace

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/stealthrocket/wasi-aot"
)

// Record is a traced WASI call.
type Record struct {
	Seq      uint64        `csv:"seq"`
	Instance uuid.UUID     `csv:"instance"`
	Time     time.Time     `csv:"time"`
	Func     string        `csv:"func"`
	Args     string        `csv:"args"`
	Result   string        `csv:"result,omitempty"`
	Errno    string        `csv:"errno"`
	Duration time.Duration `csv:"duration"`
}

// System wraps a wasi.System to trace calls.
type System struct {
	wasi.System

	// Sink receives the records. Errors returned by the sink are retained,
	// the first one is returned by Err.
	Sink Sink

	// Instance identifies the guest in the records.
	Instance uuid.UUID

	// Now returns the current time. It defaults to time.Now.
	Now func() time.Time

	seq atomic.Uint64
	err atomic.Pointer[error]
}

// Wrap returns a function wrapping systems with tracing to sink, suitable
// for imports.Builder.WithWrappers.
func Wrap(sink Sink, instance uuid.UUID) func(wasi.System) wasi.System {
	return func(system wasi.System) wasi.System {
		return &System{System: system, Sink: sink, Instance: instance}
	}
}

// Err returns the first error returned by the sink.
func (s *System) Err() error {
	if err := s.err.Load(); err != nil {
		return *err
	}
	return nil
}

func (s *System) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *System) emit(ctx context.Context, start time.Time, fn string, errno wasi.Errno, result string, format string, args ...any) {
	r := Record{
		Seq:      s.seq.Add(1),
		Instance: s.Instance,
		Time:     start,
		Func:     fn,
		Args:     fmt.Sprintf(format, args...),
		Errno:    errno.Name(),
		Duration: s.now().Sub(start),
	}
	if errno == wasi.ESUCCESS {
		r.Result = result
	}
	if err := s.Sink.Write(ctx, r); err != nil {
		s.err.CompareAndSwap(nil, &err)
	}
}

func (s *System) ArgsSizesGet(ctx context.Context) (int, int, wasi.Errno) {
	t := s.now()
	count, size, errno := s.System.ArgsSizesGet(ctx)
	s.emit(ctx, t, "args_sizes_get", errno, fmt.Sprintf("%d, %d", count, size), "")
	return count, size, errno
}

func (s *System) ArgsGet(ctx context.Context) ([]string, wasi.Errno) {
	t := s.now()
	args, errno := s.System.ArgsGet(ctx)
	s.emit(ctx, t, "args_get", errno, fmt.Sprintf("%q", args), "")
	return args, errno
}

func (s *System) EnvironSizesGet(ctx context.Context) (int, int, wasi.Errno) {
	t := s.now()
	count, size, errno := s.System.EnvironSizesGet(ctx)
	s.emit(ctx, t, "environ_sizes_get", errno, fmt.Sprintf("%d, %d", count, size), "")
	return count, size, errno
}

func (s *System) EnvironGet(ctx context.Context) ([]string, wasi.Errno) {
	t := s.now()
	env, errno := s.System.EnvironGet(ctx)
	s.emit(ctx, t, "environ_get", errno, fmt.Sprintf("%q", env), "")
	return env, errno
}

func (s *System) ClockResGet(ctx context.Context, id wasi.ClockID) (wasi.Timestamp, wasi.Errno) {
	t := s.now()
	res, errno := s.System.ClockResGet(ctx, id)
	s.emit(ctx, t, "clock_res_get", errno, fmt.Sprint(uint64(res)), "%s", id)
	return res, errno
}

func (s *System) ClockTimeGet(ctx context.Context, id wasi.ClockID, precision wasi.Timestamp) (wasi.Timestamp, wasi.Errno) {
	t := s.now()
	ts, errno := s.System.ClockTimeGet(ctx, id, precision)
	s.emit(ctx, t, "clock_time_get", errno, fmt.Sprint(uint64(ts)), "%s, %d", id, uint64(precision))
	return ts, errno
}

func (s *System) FDAdvise(ctx context.Context, fd wasi.FD, offset, length wasi.FileSize, advice wasi.Advice) wasi.Errno {
	t := s.now()
	errno := s.System.FDAdvise(ctx, fd, offset, length, advice)
	s.emit(ctx, t, "fd_advise", errno, "", "%d, %d, %d, %d", fd, offset, length, advice)
	return errno
}

func (s *System) FDAllocate(ctx context.Context, fd wasi.FD, offset, length wasi.FileSize) wasi.Errno {
	t := s.now()
	errno := s.System.FDAllocate(ctx, fd, offset, length)
	s.emit(ctx, t, "fd_allocate", errno, "", "%d, %d, %d", fd, offset, length)
	return errno
}

func (s *System) FDClose(ctx context.Context, fd wasi.FD) wasi.Errno {
	t := s.now()
	errno := s.System.FDClose(ctx, fd)
	s.emit(ctx, t, "fd_close", errno, "", "%d", fd)
	return errno
}

func (s *System) FDDataSync(ctx context.Context, fd wasi.FD) wasi.Errno {
	t := s.now()
	errno := s.System.FDDataSync(ctx, fd)
	s.emit(ctx, t, "fd_datasync", errno, "", "%d", fd)
	return errno
}

func (s *System) FDStatGet(ctx context.Context, fd wasi.FD) (wasi.FDStat, wasi.Errno) {
	t := s.now()
	stat, errno := s.System.FDStatGet(ctx, fd)
	s.emit(ctx, t, "fd_fdstat_get", errno, formatFDStat(stat), "%d", fd)
	return stat, errno
}

func (s *System) FDStatSetFlags(ctx context.Context, fd wasi.FD, flags wasi.FDFlags) wasi.Errno {
	t := s.now()
	errno := s.System.FDStatSetFlags(ctx, fd, flags)
	s.emit(ctx, t, "fd_fdstat_set_flags", errno, "", "%d, %s", fd, flags)
	return errno
}

func (s *System) FDStatSetRights(ctx context.Context, fd wasi.FD, rightsBase, rightsInheriting wasi.Rights) wasi.Errno {
	t := s.now()
	errno := s.System.FDStatSetRights(ctx, fd, rightsBase, rightsInheriting)
	s.emit(ctx, t, "fd_fdstat_set_rights", errno, "", "%d, %s, %s", fd, rightsBase, rightsInheriting)
	return errno
}

func (s *System) FDFileStatGet(ctx context.Context, fd wasi.FD) (wasi.FileStat, wasi.Errno) {
	t := s.now()
	stat, errno := s.System.FDFileStatGet(ctx, fd)
	s.emit(ctx, t, "fd_filestat_get", errno, formatFileStat(stat), "%d", fd)
	return stat, errno
}

func (s *System) FDFileStatSetSize(ctx context.Context, fd wasi.FD, size wasi.FileSize) wasi.Errno {
	t := s.now()
	errno := s.System.FDFileStatSetSize(ctx, fd, size)
	s.emit(ctx, t, "fd_filestat_set_size", errno, "", "%d, %d", fd, size)
	return errno
}

func (s *System) FDFileStatSetTimes(ctx context.Context, fd wasi.FD, accessTime, modifyTime wasi.Timestamp, flags wasi.FSTFlags) wasi.Errno {
	t := s.now()
	errno := s.System.FDFileStatSetTimes(ctx, fd, accessTime, modifyTime, flags)
	s.emit(ctx, t, "fd_filestat_set_times", errno, "", "%d, %d, %d, %s", fd, uint64(accessTime), uint64(modifyTime), flags)
	return errno
}

func (s *System) FDPread(ctx context.Context, fd wasi.FD, iovecs []wasi.IOVec, offset wasi.FileSize) (wasi.Size, wasi.Errno) {
	t := s.now()
	n, errno := s.System.FDPread(ctx, fd, iovecs, offset)
	s.emit(ctx, t, "fd_pread", errno, fmt.Sprint(n), "%d, %s, %d", fd, formatIOVecs(iovecs), offset)
	return n, errno
}

func (s *System) FDPreStatGet(ctx context.Context, fd wasi.FD) (wasi.PreStat, wasi.Errno) {
	t := s.now()
	stat, errno := s.System.FDPreStatGet(ctx, fd)
	s.emit(ctx, t, "fd_prestat_get", errno, fmt.Sprintf("{Type:%d,NameLength:%d}", stat.Type, stat.NameLength), "%d", fd)
	return stat, errno
}

func (s *System) FDPreStatDirName(ctx context.Context, fd wasi.FD) (string, wasi.Errno) {
	t := s.now()
	name, errno := s.System.FDPreStatDirName(ctx, fd)
	s.emit(ctx, t, "fd_prestat_dir_name", errno, fmt.Sprintf("%q", name), "%d", fd)
	return name, errno
}

func (s *System) FDPwrite(ctx context.Context, fd wasi.FD, iovecs []wasi.IOVec, offset wasi.FileSize) (wasi.Size, wasi.Errno) {
	t := s.now()
	n, errno := s.System.FDPwrite(ctx, fd, iovecs, offset)
	s.emit(ctx, t, "fd_pwrite", errno, fmt.Sprint(n), "%d, %s, %d", fd, formatIOVecs(iovecs), offset)
	return n, errno
}

func (s *System) FDRead(ctx context.Context, fd wasi.FD, iovecs []wasi.IOVec) (wasi.Size, wasi.Errno) {
	t := s.now()
	n, errno := s.System.FDRead(ctx, fd, iovecs)
	s.emit(ctx, t, "fd_read", errno, fmt.Sprint(n), "%d, %s", fd, formatIOVecs(iovecs))
	return n, errno
}

func (s *System) FDReadDir(ctx context.Context, fd wasi.FD, entries []wasi.DirEntry, cookie wasi.DirCookie, bufferSizeBytes int) (int, wasi.Errno) {
	t := s.now()
	n, errno := s.System.FDReadDir(ctx, fd, entries, cookie, bufferSizeBytes)
	var result string
	if errno == wasi.ESUCCESS {
		names := make([]string, n)
		for i, e := range entries[:n] {
			names[i] = string(e.Name)
		}
		result = fmt.Sprintf("%q", names)
	}
	s.emit(ctx, t, "fd_readdir", errno, result, "%d, %d, %d", fd, cookie, bufferSizeBytes)
	return n, errno
}

func (s *System) FDRenumber(ctx context.Context, from, to wasi.FD) wasi.Errno {
	t := s.now()
	errno := s.System.FDRenumber(ctx, from, to)
	s.emit(ctx, t, "fd_renumber", errno, "", "%d, %d", from, to)
	return errno
}

func (s *System) FDSeek(ctx context.Context, fd wasi.FD, offset wasi.FileDelta, whence wasi.Whence) (wasi.FileSize, wasi.Errno) {
	t := s.now()
	pos, errno := s.System.FDSeek(ctx, fd, offset, whence)
	s.emit(ctx, t, "fd_seek", errno, fmt.Sprint(pos), "%d, %d, %s", fd, offset, whence)
	return pos, errno
}

func (s *System) FDSync(ctx context.Context, fd wasi.FD) wasi.Errno {
	t := s.now()
	errno := s.System.FDSync(ctx, fd)
	s.emit(ctx, t, "fd_sync", errno, "", "%d", fd)
	return errno
}

func (s *System) FDTell(ctx context.Context, fd wasi.FD) (wasi.FileSize, wasi.Errno) {
	t := s.now()
	pos, errno := s.System.FDTell(ctx, fd)
	s.emit(ctx, t, "fd_tell", errno, fmt.Sprint(pos), "%d", fd)
	return pos, errno
}

func (s *System) FDWrite(ctx context.Context, fd wasi.FD, iovecs []wasi.IOVec) (wasi.Size, wasi.Errno) {
	t := s.now()
	n, errno := s.System.FDWrite(ctx, fd, iovecs)
	s.emit(ctx, t, "fd_write", errno, fmt.Sprint(n), "%d, %s", fd, formatIOVecs(iovecs))
	return n, errno
}

func (s *System) PathCreateDirectory(ctx context.Context, fd wasi.FD, path string) wasi.Errno {
	t := s.now()
	errno := s.System.PathCreateDirectory(ctx, fd, path)
	s.emit(ctx, t, "path_create_directory", errno, "", "%d, %q", fd, path)
	return errno
}

func (s *System) PathFileStatGet(ctx context.Context, fd wasi.FD, lookupFlags wasi.LookupFlags, path string) (wasi.FileStat, wasi.Errno) {
	t := s.now()
	stat, errno := s.System.PathFileStatGet(ctx, fd, lookupFlags, path)
	s.emit(ctx, t, "path_filestat_get", errno, formatFileStat(stat), "%d, %d, %q", fd, lookupFlags, path)
	return stat, errno
}

func (s *System) PathFileStatSetTimes(ctx context.Context, fd wasi.FD, lookupFlags wasi.LookupFlags, path string, accessTime, modifyTime wasi.Timestamp, flags wasi.FSTFlags) wasi.Errno {
	t := s.now()
	errno := s.System.PathFileStatSetTimes(ctx, fd, lookupFlags, path, accessTime, modifyTime, flags)
	s.emit(ctx, t, "path_filestat_set_times", errno, "", "%d, %d, %q, %d, %d, %s", fd, lookupFlags, path, uint64(accessTime), uint64(modifyTime), flags)
	return errno
}

func (s *System) PathLink(ctx context.Context, oldFD wasi.FD, oldFlags wasi.LookupFlags, oldPath string, newFD wasi.FD, newPath string) wasi.Errno {
	t := s.now()
	errno := s.System.PathLink(ctx, oldFD, oldFlags, oldPath, newFD, newPath)
	s.emit(ctx, t, "path_link", errno, "", "%d, %d, %q, %d, %q", oldFD, oldFlags, oldPath, newFD, newPath)
	return errno
}

func (s *System) PathOpen(ctx context.Context, fd wasi.FD, dirFlags wasi.LookupFlags, path string, openFlags wasi.OpenFlags, rightsBase, rightsInheriting wasi.Rights, fdFlags wasi.FDFlags) (wasi.FD, wasi.Errno) {
	t := s.now()
	newfd, errno := s.System.PathOpen(ctx, fd, dirFlags, path, openFlags, rightsBase, rightsInheriting, fdFlags)
	s.emit(ctx, t, "path_open", errno, fmt.Sprint(newfd), "%d, %d, %q, %s, %s, %s, %s", fd, dirFlags, path, openFlags, rightsBase, rightsInheriting, fdFlags)
	return newfd, errno
}

func (s *System) PathReadLink(ctx context.Context, fd wasi.FD, path string, buffer []byte) (int, wasi.Errno) {
	t := s.now()
	n, errno := s.System.PathReadLink(ctx, fd, path, buffer)
	var result string
	if errno == wasi.ESUCCESS {
		result = fmt.Sprintf("%q", buffer[:n])
	}
	s.emit(ctx, t, "path_readlink", errno, result, "%d, %q, %d", fd, path, len(buffer))
	return n, errno
}

func (s *System) PathRemoveDirectory(ctx context.Context, fd wasi.FD, path string) wasi.Errno {
	t := s.now()
	errno := s.System.PathRemoveDirectory(ctx, fd, path)
	s.emit(ctx, t, "path_remove_directory", errno, "", "%d, %q", fd, path)
	return errno
}

func (s *System) PathRename(ctx context.Context, fd wasi.FD, oldPath string, newFD wasi.FD, newPath string) wasi.Errno {
	t := s.now()
	errno := s.System.PathRename(ctx, fd, oldPath, newFD, newPath)
	s.emit(ctx, t, "path_rename", errno, "", "%d, %q, %d, %q", fd, oldPath, newFD, newPath)
	return errno
}

func (s *System) PathSymlink(ctx context.Context, oldPath string, fd wasi.FD, newPath string) wasi.Errno {
	t := s.now()
	errno := s.System.PathSymlink(ctx, oldPath, fd, newPath)
	s.emit(ctx, t, "path_symlink", errno, "", "%q, %d, %q", oldPath, fd, newPath)
	return errno
}

func (s *System) PathUnlinkFile(ctx context.Context, fd wasi.FD, path string) wasi.Errno {
	t := s.now()
	errno := s.System.PathUnlinkFile(ctx, fd, path)
	s.emit(ctx, t, "path_unlink_file", errno, "", "%d, %q", fd, path)
	return errno
}

func (s *System) ProcExit(ctx context.Context, exitCode wasi.ExitCode) wasi.Errno {
	t := s.now()
	errno := s.System.ProcExit(ctx, exitCode)
	s.emit(ctx, t, "proc_exit", errno, "", "%d", exitCode)
	return errno
}

func (s *System) SchedYield(ctx context.Context) wasi.Errno {
	t := s.now()
	errno := s.System.SchedYield(ctx)
	s.emit(ctx, t, "sched_yield", errno, "", "")
	return errno
}

func (s *System) RandomGet(ctx context.Context, b []byte) wasi.Errno {
	t := s.now()
	errno := s.System.RandomGet(ctx, b)
	s.emit(ctx, t, "random_get", errno, "", "%d", len(b))
	return errno
}

func formatFDStat(s wasi.FDStat) string {
	return fmt.Sprintf("{FileType:%s,Flags:%s,RightsBase:%s,RightsInheriting:%s}",
		s.FileType, s.Flags, s.RightsBase, s.RightsInheriting)
}

func formatFileStat(s wasi.FileStat) string {
	return fmt.Sprintf("{FileType:%s,INode:%d,NLink:%d,Size:%d}",
		s.FileType, s.INode, s.NLink, s.Size)
}

// formatIOVecs writes the sizes of the vectors, the contents are not traced.
func formatIOVecs(iovecs []wasi.IOVec) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, iov := range iovecs {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprint(&b, len(iov))
	}
	b.WriteByte(']')
	return b.String()
}
