package wasitest

import (
	"context"
	"testing"

	"github.com/stealthrocket/wasi-aot"
)

var rights = testSuite{
	"standard streams have the stdio rights": func(t *testing.T, ctx context.Context, newSystem newSystem) {
		s := newSystem(TestConfig{})
		for fd := wasi.FD(0); fd < 3; fd++ {
			stat, errno := s.FDStatGet(ctx, fd)
			assertEqual(t, errno, wasi.ESUCCESS)
			assertEqual(t, stat.RightsBase, wasi.StdioRights)
		}
	},

	"preopened directories have the directory rights": func(t *testing.T, ctx context.Context, newSystem newSystem) {
		s := newSystem(TestConfig{})
		stat, errno := s.FDStatGet(ctx, rootFD)
		assertEqual(t, errno, wasi.ESUCCESS)
		assertEqual(t, stat.FileType, wasi.DirectoryType)
		assertEqual(t, stat.RightsBase, wasi.DirectoryRights)
		assertEqual(t, stat.RightsInheriting, wasi.InheritingDirectoryRights)
	},

	"operations without the matching right return ENOTCAPABLE": func(t *testing.T, ctx context.Context, newSystem newSystem) {
		s := newSystem(TestConfig{})
		fd := openFile(t, ctx, s, "data", wasi.OpenCreate, wasi.FDReadRight)

		_, errno := s.FDPread(ctx, fd, []wasi.IOVec{make([]byte, 4)}, 0)
		assertEqual(t, errno, wasi.ENOTCAPABLE)

		_, errno = s.FDSeek(ctx, fd, 0, wasi.SeekEnd)
		assertEqual(t, errno, wasi.ENOTCAPABLE)

		assertEqual(t, s.FDFileStatSetSize(ctx, fd, 0), wasi.ENOTCAPABLE)
	},

	"reads and writes without the access right return EBADF": func(t *testing.T, ctx context.Context, newSystem newSystem) {
		s := newSystem(TestConfig{})
		readOnly := openFile(t, ctx, s, "data", wasi.OpenCreate, wasi.FDReadRight|wasi.FDSeekRight)
		writeOnly := openFile(t, ctx, s, "data", 0, wasi.FDWriteRight|wasi.FDSeekRight)

		_, errno := s.FDWrite(ctx, readOnly, []wasi.IOVec{[]byte("nope")})
		assertEqual(t, errno, wasi.EBADF)
		_, errno = s.FDPwrite(ctx, readOnly, []wasi.IOVec{[]byte("nope")}, 0)
		assertEqual(t, errno, wasi.EBADF)

		_, errno = s.FDRead(ctx, writeOnly, []wasi.IOVec{make([]byte, 4)})
		assertEqual(t, errno, wasi.EBADF)
		_, errno = s.FDPread(ctx, writeOnly, []wasi.IOVec{make([]byte, 4)}, 0)
		assertEqual(t, errno, wasi.EBADF)
	},

	"rights can be removed but not added": func(t *testing.T, ctx context.Context, newSystem newSystem) {
		s := newSystem(TestConfig{})
		fd := openFile(t, ctx, s, "data", wasi.OpenCreate, wasi.FDReadRight|wasi.FDWriteRight)

		assertEqual(t, s.FDStatSetRights(ctx, fd, wasi.FDReadRight|wasi.FDWriteRight|wasi.FDSeekRight, 0), wasi.ENOTCAPABLE)
		assertEqual(t, s.FDStatSetRights(ctx, fd, wasi.FDReadRight, 0), wasi.ESUCCESS)

		stat, errno := s.FDStatGet(ctx, fd)
		assertEqual(t, errno, wasi.ESUCCESS)
		assertEqual(t, stat.RightsBase, wasi.FDReadRight)

		_, errno = s.FDWrite(ctx, fd, []wasi.IOVec{[]byte("nope")})
		assertEqual(t, errno, wasi.EBADF)

		assertEqual(t, s.FDStatSetRights(ctx, fd, wasi.FDReadRight|wasi.FDWriteRight, 0), wasi.ENOTCAPABLE)
	},

	"PathOpen cannot request more than the inheriting rights": func(t *testing.T, ctx context.Context, newSystem newSystem) {
		s := newSystem(TestConfig{})
		dir, errno := s.PathOpen(ctx, rootFD, 0, ".", wasi.OpenDirectory, wasi.PathOpenRight|wasi.PathCreateFileRight, wasi.FDReadRight, 0)
		assertEqual(t, errno, wasi.ESUCCESS)

		stat, errno := s.FDStatGet(ctx, dir)
		assertEqual(t, errno, wasi.ESUCCESS)
		assertEqual(t, stat.RightsInheriting, wasi.FDReadRight)

		_, errno = s.PathOpen(ctx, dir, 0, "data", wasi.OpenCreate, wasi.FDReadRight|wasi.FDWriteRight, 0, 0)
		assertEqual(t, errno, wasi.ENOTCAPABLE)

		fd, errno := s.PathOpen(ctx, dir, 0, "data", wasi.OpenCreate, wasi.FDReadRight, 0, 0)
		assertEqual(t, errno, wasi.ESUCCESS)
		assertEqual(t, s.FDClose(ctx, fd), wasi.ESUCCESS)
	},

	"PathOpen requires the path open right": func(t *testing.T, ctx context.Context, newSystem newSystem) {
		s := newSystem(TestConfig{})
		assertEqual(t, s.FDStatSetRights(ctx, rootFD, wasi.DirectoryRights&^wasi.PathOpenRight, wasi.InheritingDirectoryRights), wasi.ESUCCESS)

		_, errno := s.PathOpen(ctx, rootFD, 0, ".", wasi.OpenDirectory, wasi.FDReadDirRight, 0, 0)
		assertEqual(t, errno, wasi.ENOTCAPABLE)
	},

	"creating a file requires the create right": func(t *testing.T, ctx context.Context, newSystem newSystem) {
		s := newSystem(TestConfig{})
		assertEqual(t, s.FDStatSetRights(ctx, rootFD, wasi.DirectoryRights&^wasi.PathCreateFileRight, wasi.InheritingDirectoryRights), wasi.ESUCCESS)

		_, errno := s.PathOpen(ctx, rootFD, 0, "data", wasi.OpenCreate, wasi.FDReadRight, 0, 0)
		assertEqual(t, errno, wasi.ENOTCAPABLE)
	},
}
