package unix_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stealthrocket/wasi-aot"
	"github.com/stealthrocket/wasi-aot/systems/unix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rootFD = 3

func TestSystemPreopens(t *testing.T) {
	testSystem(t, func(ctx context.Context, s *unix.System, dir string) {
		for fd := wasi.FD(0); fd < 3; fd++ {
			_, errno := s.FDPreStatGet(ctx, fd)
			assert.Equal(t, wasi.EBADF, errno, "fd=%d", fd)

			stat, errno := s.FDStatGet(ctx, fd)
			require.Equal(t, wasi.ESUCCESS, errno)
			assert.Equal(t, wasi.StdioRights, stat.RightsBase)
			assert.Zero(t, stat.RightsInheriting)
		}

		prestat, errno := s.FDPreStatGet(ctx, rootFD)
		require.Equal(t, wasi.ESUCCESS, errno)
		assert.Equal(t, wasi.PreStat{Type: wasi.PreOpenDir, NameLength: wasi.Size(len(dir))}, prestat)

		name, errno := s.FDPreStatDirName(ctx, rootFD)
		require.Equal(t, wasi.ESUCCESS, errno)
		assert.Equal(t, dir, name)

		stat, errno := s.FDStatGet(ctx, rootFD)
		require.Equal(t, wasi.ESUCCESS, errno)
		assert.Equal(t, wasi.FDStat{
			FileType:         wasi.DirectoryType,
			RightsBase:       wasi.DirectoryRights,
			RightsInheriting: wasi.InheritingDirectoryRights,
		}, stat)

		_, errno = s.FDPreStatGet(ctx, rootFD+1)
		assert.Equal(t, wasi.EBADF, errno)
	})
}

func TestSystemReadWrite(t *testing.T) {
	testSystem(t, func(ctx context.Context, s *unix.System, dir string) {
		fd, errno := s.PathOpen(ctx, rootFD, 0, "hello.txt", wasi.OpenCreate, wasi.FDReadRight|wasi.FDWriteRight|wasi.FDSeekRight|wasi.FDTellRight, 0, 0)
		require.Equal(t, wasi.ESUCCESS, errno)

		n, errno := s.FDWrite(ctx, fd, []wasi.IOVec{[]byte("hello "), []byte("world")})
		require.Equal(t, wasi.ESUCCESS, errno)
		assert.Equal(t, wasi.Size(11), n)

		buf := make([]byte, 5)
		n, errno = s.FDPread(ctx, fd, []wasi.IOVec{buf}, 6)
		require.Equal(t, wasi.ESUCCESS, errno)
		assert.Equal(t, "world", string(buf[:n]))

		offset, errno := s.FDSeek(ctx, fd, 0, wasi.SeekStart)
		require.Equal(t, wasi.ESUCCESS, errno)
		assert.Zero(t, offset)

		n, errno = s.FDRead(ctx, fd, []wasi.IOVec{buf})
		require.Equal(t, wasi.ESUCCESS, errno)
		assert.Equal(t, "hello", string(buf[:n]))

		offset, errno = s.FDTell(ctx, fd)
		require.Equal(t, wasi.ESUCCESS, errno)
		assert.Equal(t, wasi.FileSize(5), offset)

		stat, errno := s.FDFileStatGet(ctx, fd)
		assert.Equal(t, wasi.ENOTCAPABLE, errno)

		require.Equal(t, wasi.ESUCCESS, s.FDClose(ctx, fd))
		_, errno = s.FDRead(ctx, fd, []wasi.IOVec{buf})
		assert.Equal(t, wasi.EBADF, errno)

		stat, errno = s.PathFileStatGet(ctx, rootFD, 0, "hello.txt")
		require.Equal(t, wasi.ESUCCESS, errno)
		assert.Equal(t, wasi.RegularFileType, stat.FileType)
		assert.Equal(t, wasi.FileSize(11), stat.Size)
	})
}

func TestSystemAccessMode(t *testing.T) {
	testSystem(t, func(ctx context.Context, s *unix.System, dir string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "data"), []byte("data"), 0644))

		readOnly, errno := s.PathOpen(ctx, rootFD, 0, "data", 0, wasi.FDReadRight, 0, 0)
		require.Equal(t, wasi.ESUCCESS, errno)

		_, errno = s.FDWrite(ctx, readOnly, []wasi.IOVec{[]byte("x")})
		assert.Equal(t, wasi.EBADF, errno)
		_, errno = s.FDPwrite(ctx, readOnly, []wasi.IOVec{[]byte("x")}, 0)
		assert.Equal(t, wasi.EBADF, errno)

		// The host descriptor itself is opened read-only.
		file, _, errno := s.LookupFD(readOnly, 0)
		require.Equal(t, wasi.ESUCCESS, errno)
		_, errno = file.FDWrite(ctx, []wasi.IOVec{[]byte("x")})
		assert.Equal(t, wasi.EBADF, errno)

		writeOnly, errno := s.PathOpen(ctx, rootFD, 0, "data", 0, wasi.FDWriteRight, 0, 0)
		require.Equal(t, wasi.ESUCCESS, errno)
		_, errno = s.FDRead(ctx, writeOnly, []wasi.IOVec{make([]byte, 4)})
		assert.Equal(t, wasi.EBADF, errno)
		file, _, _ = s.LookupFD(writeOnly, 0)
		_, errno = file.FDRead(ctx, []wasi.IOVec{make([]byte, 4)})
		assert.Equal(t, wasi.EBADF, errno)
	})
}

func TestSystemPathOpenErrors(t *testing.T) {
	testSystem(t, func(ctx context.Context, s *unix.System, dir string) {
		tests := []struct {
			path      string
			openFlags wasi.OpenFlags
			errno     wasi.Errno
		}{
			{"missing", 0, wasi.ENOENT},
			{"../escape", 0, wasi.EPERM},
			{"/etc/passwd", 0, wasi.EPERM},
			{".", wasi.OpenCreate | wasi.OpenExclusive, wasi.EEXIST},
		}

		for _, test := range tests {
			_, errno := s.PathOpen(ctx, rootFD, 0, test.path, test.openFlags, wasi.FDReadRight, 0, 0)
			assert.Equal(t, test.errno, errno, "path=%q", test.path)
		}

		_, errno := s.PathOpen(ctx, 1, 0, "file", 0, wasi.FDReadRight, 0, 0)
		assert.Equal(t, wasi.ENOTCAPABLE, errno)
	})
}

func TestSystemFDStatFlags(t *testing.T) {
	testSystem(t, func(ctx context.Context, s *unix.System, dir string) {
		fd, errno := s.PathOpen(ctx, rootFD, 0, "log", wasi.OpenCreate, wasi.FDWriteRight|wasi.FDStatSetFlagsRight, 0, wasi.Append)
		require.Equal(t, wasi.ESUCCESS, errno)

		stat, errno := s.FDStatGet(ctx, fd)
		require.Equal(t, wasi.ESUCCESS, errno)
		assert.Equal(t, wasi.RegularFileType, stat.FileType)
		assert.Equal(t, wasi.Append, stat.Flags)
		assert.Equal(t, wasi.FDWriteRight|wasi.FDStatSetFlagsRight, stat.RightsBase)

		require.Equal(t, wasi.ESUCCESS, s.FDStatSetFlags(ctx, fd, wasi.NonBlock))
		stat, errno = s.FDStatGet(ctx, fd)
		require.Equal(t, wasi.ESUCCESS, errno)
		assert.Equal(t, wasi.NonBlock, stat.Flags)

		assert.Equal(t, wasi.ENOTSUP, s.FDStatSetFlags(ctx, fd, wasi.Sync))
	})
}

func TestSystemFDStatSyncFlags(t *testing.T) {
	testSystem(t, func(ctx context.Context, s *unix.System, dir string) {
		const rights = wasi.FDReadRight | wasi.FDWriteRight | wasi.FDStatSetFlagsRight

		fd, errno := s.PathOpen(ctx, rootFD, 0, "rsync", wasi.OpenCreate, rights, 0, wasi.RSync)
		require.Equal(t, wasi.ESUCCESS, errno)

		stat, errno := s.FDStatGet(ctx, fd)
		require.Equal(t, wasi.ESUCCESS, errno)
		assert.True(t, stat.Flags.Has(wasi.RSync), "flags=%s", stat.Flags)

		// Flags read back from the descriptor can be set again.
		require.Equal(t, wasi.ESUCCESS, s.FDStatSetFlags(ctx, fd, stat.Flags|wasi.Append))
		again, errno := s.FDStatGet(ctx, fd)
		require.Equal(t, wasi.ESUCCESS, errno)
		assert.Equal(t, stat.Flags|wasi.Append, again.Flags)

		require.Equal(t, wasi.ESUCCESS, s.FDStatSetFlags(ctx, fd, wasi.RSync))
		assert.Equal(t, wasi.ENOTSUP, s.FDStatSetFlags(ctx, fd, 0))

		fd, errno = s.PathOpen(ctx, rootFD, 0, "dsync", wasi.OpenCreate, rights, 0, wasi.DSync)
		require.Equal(t, wasi.ESUCCESS, errno)
		stat, errno = s.FDStatGet(ctx, fd)
		require.Equal(t, wasi.ESUCCESS, errno)
		assert.False(t, stat.Flags.Has(wasi.RSync), "flags=%s", stat.Flags)
		assert.Equal(t, wasi.ENOTSUP, s.FDStatSetFlags(ctx, fd, wasi.RSync))
	})
}

func TestSystemReadDir(t *testing.T) {
	testSystem(t, func(ctx context.Context, s *unix.System, dir string) {
		want := []string{".", ".."}
		for _, name := range []string{"a", "bb", "ccc", "dddd", "eeeee", "ffffff"} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
			want = append(want, name)
		}

		// Room for two short entries at most.
		const bufferSize = 2*wasi.SizeOfDirent + 4

		var got []string
		var cookie wasi.DirCookie
		entries := make([]wasi.DirEntry, 16)
		for {
			n, errno := s.FDReadDir(ctx, rootFD, entries, cookie, bufferSize)
			require.Equal(t, wasi.ESUCCESS, errno)
			if n == 0 {
				break
			}
			size := 0
			for _, entry := range entries[:n] {
				size += wasi.SizeOfDirent + len(entry.Name)
				got = append(got, string(entry.Name))
			}
			assert.LessOrEqual(t, size, bufferSize)
			cookie = entries[n-1].Next
		}

		sort.Strings(got)
		sort.Strings(want)
		assert.Equal(t, want, got)

		n, errno := s.FDReadDir(ctx, rootFD, entries, 0, 1024)
		require.Equal(t, wasi.ESUCCESS, errno)
		assert.Equal(t, len(want), n)
		assert.Equal(t, wasi.DirCookie(1), entries[0].Next)

		n, errno = s.FDReadDir(ctx, rootFD, entries, 0, wasi.SizeOfDirent)
		require.Equal(t, wasi.ESUCCESS, errno)
		assert.Zero(t, n)
	})
}

func TestSystemSetTimes(t *testing.T) {
	testSystem(t, func(ctx context.Context, s *unix.System, dir string) {
		const now = 1_000_000_000_123_456_789
		s.Realtime = func(context.Context) (uint64, error) { return now, nil }
		require.NoError(t, os.WriteFile(filepath.Join(dir, "file"), nil, 0644))

		errno := s.PathFileStatSetTimes(ctx, rootFD, 0, "file", 0, 0, wasi.AccessTimeNow|wasi.ModifyTimeNow)
		require.Equal(t, wasi.ESUCCESS, errno)

		stat, errno := s.PathFileStatGet(ctx, rootFD, 0, "file")
		require.Equal(t, wasi.ESUCCESS, errno)
		assert.Equal(t, wasi.Timestamp(now), stat.AccessTime)
		assert.Equal(t, wasi.Timestamp(now), stat.ModifyTime)

		const mtime = 1_500_000_000_000_000_000
		errno = s.PathFileStatSetTimes(ctx, rootFD, 0, "file", 0, mtime, wasi.ModifyTime)
		require.Equal(t, wasi.ESUCCESS, errno)

		stat, errno = s.PathFileStatGet(ctx, rootFD, 0, "file")
		require.Equal(t, wasi.ESUCCESS, errno)
		assert.Equal(t, wasi.Timestamp(now), stat.AccessTime)
		assert.Equal(t, wasi.Timestamp(mtime), stat.ModifyTime)

		errno = s.PathFileStatSetTimes(ctx, rootFD, 0, "file", 1, 0, wasi.AccessTime|wasi.AccessTimeNow)
		assert.Equal(t, wasi.EINVAL, errno)
	})
}

func TestSystemPathOperations(t *testing.T) {
	testSystem(t, func(ctx context.Context, s *unix.System, dir string) {
		require.Equal(t, wasi.ESUCCESS, s.PathCreateDirectory(ctx, rootFD, "sub"))
		assert.Equal(t, wasi.EEXIST, s.PathCreateDirectory(ctx, rootFD, "sub"))

		require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "a"), []byte("a"), 0644))
		require.Equal(t, wasi.ESUCCESS, s.PathRename(ctx, rootFD, "sub/a", rootFD, "b"))
		require.Equal(t, wasi.ESUCCESS, s.PathSymlink(ctx, "b", rootFD, "link"))

		buf := make([]byte, 16)
		n, errno := s.PathReadLink(ctx, rootFD, "link", buf)
		require.Equal(t, wasi.ESUCCESS, errno)
		assert.Equal(t, "b", string(buf[:n]))

		stat, errno := s.PathFileStatGet(ctx, rootFD, 0, "link")
		require.Equal(t, wasi.ESUCCESS, errno)
		assert.Equal(t, wasi.SymbolicLinkType, stat.FileType)

		stat, errno = s.PathFileStatGet(ctx, rootFD, wasi.SymlinkFollow, "link")
		require.Equal(t, wasi.ESUCCESS, errno)
		assert.Equal(t, wasi.RegularFileType, stat.FileType)

		require.Equal(t, wasi.ESUCCESS, s.PathLink(ctx, rootFD, 0, "b", rootFD, "c"))
		stat, errno = s.PathFileStatGet(ctx, rootFD, 0, "c")
		require.Equal(t, wasi.ESUCCESS, errno)
		assert.Equal(t, wasi.LinkCount(2), stat.NLink)

		assert.Equal(t, wasi.EPERM, s.PathRemoveDirectory(ctx, rootFD, ".."))
		require.Equal(t, wasi.ESUCCESS, s.PathUnlinkFile(ctx, rootFD, "link"))
		require.Equal(t, wasi.ESUCCESS, s.PathRemoveDirectory(ctx, rootFD, "sub"))
		_, errno = s.PathFileStatGet(ctx, rootFD, 0, "sub")
		assert.Equal(t, wasi.ENOENT, errno)
	})
}

func TestSystemClocksAndRandom(t *testing.T) {
	testSystem(t, func(ctx context.Context, s *unix.System, dir string) {
		t0, errno := s.ClockTimeGet(ctx, wasi.Monotonic, 1)
		require.Equal(t, wasi.ESUCCESS, errno)
		t1, errno := s.ClockTimeGet(ctx, wasi.Monotonic, 1)
		require.Equal(t, wasi.ESUCCESS, errno)
		assert.GreaterOrEqual(t, t1, t0)

		res, errno := s.ClockResGet(ctx, wasi.Realtime)
		require.Equal(t, wasi.ESUCCESS, errno)
		assert.Equal(t, wasi.Timestamp(time.Microsecond), res)

		_, errno = s.ClockTimeGet(ctx, wasi.ClockID(42), 1)
		assert.Equal(t, wasi.EINVAL, errno)

		b := make([]byte, 32)
		require.Equal(t, wasi.ESUCCESS, s.RandomGet(ctx, b))
		assert.NotEqual(t, make([]byte, 32), b)

		var exitCode int
		s.Exit = func(_ context.Context, code int) error { exitCode = code; return nil }
		require.Equal(t, wasi.ESUCCESS, s.ProcExit(ctx, 3))
		assert.Equal(t, 3, exitCode)
	})
}

func testSystem(t *testing.T, f func(context.Context, *unix.System, string)) {
	ctx := context.Background()
	dir := t.TempDir()

	s := newSystem()
	defer s.Close(ctx)

	if err := s.OpenPreopens(wasi.MakePreopens(dir), unix.DefaultStdio); err != nil {
		t.Fatal(err)
	}
	f(ctx, s, dir)
}

func newSystem() *unix.System {
	return &unix.System{
		Realtime:           realtime,
		RealtimePrecision:  time.Microsecond,
		Monotonic:          monotonic,
		MonotonicPrecision: time.Nanosecond,
	}
}

var epoch = time.Now()

func realtime(context.Context) (uint64, error) {
	return uint64(time.Now().UnixNano()), nil
}

func monotonic(context.Context) (uint64, error) {
	return uint64(time.Since(epoch)), nil
}
