package unix

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/stealthrocket/wasi-aot"
	"golang.org/x/sys/unix"
)

// System is a WASI preview 1 implementation for Unix.
//
// Descriptors are managed by the embedded capability table, which checks
// rights before forwarding calls to the host files.
//
// An instance of System is not safe for concurrent use.
type System struct {
	// Args are the command line arguments accessible via ArgsGet.
	Args []string

	// Environ is the environment variables accessible via EnvironGet.
	Environ []string

	// Realtime returns the realtime clock value. It is also sampled to
	// resolve the *_set_times requests for the current time, which fall back
	// to the host clock when Realtime is nil.
	Realtime          func(context.Context) (uint64, error)
	RealtimePrecision time.Duration

	// Monotonic returns the monotonic clock value.
	Monotonic          func(context.Context) (uint64, error)
	MonotonicPrecision time.Duration

	// Yield is called when SchedYield is called. If Yield is nil, the
	// goroutine yields to the Go scheduler.
	Yield func(context.Context) error

	// Exit is called with an exit code when ProcExit is called.
	// If Exit is nil, ProcExit is a noop.
	Exit func(context.Context, int) error

	// Rand is the source for RandomGet. If Rand is nil, crypto/rand is used.
	Rand io.Reader

	wasi.CapabilityTable[FD]
}

var _ wasi.System = (*System)(nil)

// Stdio are the host descriptors used as the guest standard streams.
type Stdio struct {
	Stdin, Stdout, Stderr int
}

// DefaultStdio are the standard streams of the host process.
var DefaultStdio = Stdio{Stdin: 0, Stdout: 1, Stderr: 2}

// OpenPreopens installs the preopens in the capability table, which must be
// empty.
//
// Standard streams are duplicated from stdio and receive wasi.StdioRights.
// Directories are opened relative to the working directory of the host
// process. Entries must be numbered in order from zero.
func (s *System) OpenPreopens(preopens []wasi.Preopen, stdio Stdio) error {
	for _, p := range preopens {
		hostfd, stat, err := openPreopen(p, stdio)
		if err != nil {
			return err
		}
		if fd := s.Preopen(FD(hostfd), p.Path, stat); fd != p.FD {
			return fmt.Errorf("preopen %q installed at fd %d instead of %d", p.Path, fd, p.FD)
		}
	}
	return nil
}

func openPreopen(p wasi.Preopen, stdio Stdio) (int, wasi.FDStat, error) {
	if p.Stdio() {
		hostfd := [3]int{stdio.Stdin, stdio.Stdout, stdio.Stderr}[p.FD]
		fd, err := dupCloseOnExec(hostfd)
		if err != nil {
			return -1, wasi.FDStat{}, fmt.Errorf("preopen %s: %w", p.Path, err)
		}
		stat := wasi.FDStat{
			FileType:   wasi.CharacterDeviceType,
			RightsBase: wasi.StdioRights,
		}
		return fd, stat, nil
	}
	fd, err := ignoreEINTR2(func() (int, error) {
		return unix.Open(p.Path, unix.O_DIRECTORY|unix.O_CLOEXEC|unix.O_RDONLY, 0)
	})
	if err != nil {
		return -1, wasi.FDStat{}, fmt.Errorf("preopen %s: %w", p.Path, err)
	}
	stat := wasi.FDStat{
		FileType:         wasi.DirectoryType,
		RightsBase:       wasi.DirectoryRights,
		RightsInheriting: wasi.InheritingDirectoryRights,
	}
	return fd, stat, nil
}

func (s *System) ArgsSizesGet(ctx context.Context) (argCount, stringBytes int, errno wasi.Errno) {
	argCount, stringBytes = wasi.SizesGet(s.Args)
	return argCount, stringBytes, wasi.ESUCCESS
}

func (s *System) ArgsGet(ctx context.Context) ([]string, wasi.Errno) {
	return s.Args, wasi.ESUCCESS
}

func (s *System) EnvironSizesGet(ctx context.Context) (envCount, stringBytes int, errno wasi.Errno) {
	envCount, stringBytes = wasi.SizesGet(s.Environ)
	return envCount, stringBytes, wasi.ESUCCESS
}

func (s *System) EnvironGet(ctx context.Context) ([]string, wasi.Errno) {
	return s.Environ, wasi.ESUCCESS
}

func (s *System) ClockResGet(ctx context.Context, id wasi.ClockID) (wasi.Timestamp, wasi.Errno) {
	switch id {
	case wasi.Realtime:
		return wasi.Timestamp(s.RealtimePrecision), wasi.ESUCCESS
	case wasi.Monotonic:
		return wasi.Timestamp(s.MonotonicPrecision), wasi.ESUCCESS
	case wasi.ProcessCPUTimeID, wasi.ThreadCPUTimeID:
		return 0, wasi.ENOTSUP
	default:
		return 0, wasi.EINVAL
	}
}

func (s *System) ClockTimeGet(ctx context.Context, id wasi.ClockID, precision wasi.Timestamp) (wasi.Timestamp, wasi.Errno) {
	switch id {
	case wasi.Realtime:
		if s.Realtime == nil {
			return 0, wasi.ENOTSUP
		}
		t, err := s.Realtime(ctx)
		return wasi.Timestamp(t), wasi.MakeErrno(err)
	case wasi.Monotonic:
		if s.Monotonic == nil {
			return 0, wasi.ENOTSUP
		}
		t, err := s.Monotonic(ctx)
		return wasi.Timestamp(t), wasi.MakeErrno(err)
	case wasi.ProcessCPUTimeID, wasi.ThreadCPUTimeID:
		return 0, wasi.ENOTSUP
	default:
		return 0, wasi.EINVAL
	}
}

func (s *System) FDFileStatSetTimes(ctx context.Context, fd wasi.FD, accessTime, modifyTime wasi.Timestamp, flags wasi.FSTFlags) wasi.Errno {
	accessTime, modifyTime, flags, errno := s.resolveTimes(ctx, accessTime, modifyTime, flags)
	if errno != wasi.ESUCCESS {
		return errno
	}
	return s.CapabilityTable.FDFileStatSetTimes(ctx, fd, accessTime, modifyTime, flags)
}

func (s *System) PathFileStatSetTimes(ctx context.Context, fd wasi.FD, lookupFlags wasi.LookupFlags, path string, accessTime, modifyTime wasi.Timestamp, flags wasi.FSTFlags) wasi.Errno {
	accessTime, modifyTime, flags, errno := s.resolveTimes(ctx, accessTime, modifyTime, flags)
	if errno != wasi.ESUCCESS {
		return errno
	}
	return s.CapabilityTable.PathFileStatSetTimes(ctx, fd, lookupFlags, path, accessTime, modifyTime, flags)
}

// resolveTimes samples the realtime clock once and turns requests for the
// current time into explicit timestamps, so both timestamps of a file receive
// the same value.
func (s *System) resolveTimes(ctx context.Context, accessTime, modifyTime wasi.Timestamp, flags wasi.FSTFlags) (wasi.Timestamp, wasi.Timestamp, wasi.FSTFlags, wasi.Errno) {
	var now wasi.Timestamp
	if flags.Has(wasi.AccessTimeNow) || flags.Has(wasi.ModifyTimeNow) {
		if s.Realtime != nil {
			t, err := s.Realtime(ctx)
			if err != nil {
				return 0, 0, 0, wasi.MakeErrno(err)
			}
			now = wasi.Timestamp(t)
		} else {
			now = wasi.Timestamp(time.Now().UnixNano())
		}
	}
	atim, mtim, errno := wasi.ResolveTimes(now, accessTime, modifyTime, flags)
	if errno != wasi.ESUCCESS {
		return 0, 0, 0, errno
	}
	flags = 0
	if !atim.Omit {
		flags |= wasi.AccessTime
	}
	if !mtim.Omit {
		flags |= wasi.ModifyTime
	}
	return atim.Time, mtim.Time, flags, wasi.ESUCCESS
}

func (s *System) ProcExit(ctx context.Context, code wasi.ExitCode) wasi.Errno {
	if s.Exit != nil {
		return wasi.MakeErrno(s.Exit(ctx, int(code)))
	}
	return wasi.ESUCCESS
}

func (s *System) SchedYield(ctx context.Context) wasi.Errno {
	if s.Yield != nil {
		return wasi.MakeErrno(s.Yield(ctx))
	}
	runtime.Gosched()
	return wasi.ESUCCESS
}

func (s *System) RandomGet(ctx context.Context, b []byte) wasi.Errno {
	r := s.Rand
	if r == nil {
		r = rand.Reader
	}
	if _, err := io.ReadFull(r, b); err != nil {
		return wasi.EIO
	}
	return wasi.ESUCCESS
}
