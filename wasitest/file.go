package wasitest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stealthrocket/wasi-aot"
)

var file = testSuite{
	"preopened directories are described by FDPreStatGet": testPreStat,
	"data written to a file can be read back":            testWriteRead,
	"positional reads and writes keep the file offset":    testPreadPwrite,
	"FDFileStatSetSize extends a file with zeros":         testSetSize,
	"directories can be created and removed":              testDirectories,
	"files can be renamed and unlinked":                   testRenameUnlink,
	"symbolic links can be created and read":              testSymlink,
	"paths cannot escape the preopened directory":         testEscape,
	"FDReadDir only returns whole entries":                testReadDirWholeEntries,
	"closing a file twice returns EBADF":                  testCloseTwice,
	"FDAllocate grows a file":                             testAllocate,
}

func testPreStat(t *testing.T, ctx context.Context, newSystem newSystem) {
	root := t.TempDir()
	s := newSystem(TestConfig{RootFS: root})

	stat, errno := s.FDPreStatGet(ctx, rootFD)
	assertEqual(t, errno, wasi.ESUCCESS)
	assertEqual(t, stat.Type, wasi.PreOpenDir)
	assertEqual(t, int(stat.NameLength), len(root))

	name, errno := s.FDPreStatDirName(ctx, rootFD)
	assertEqual(t, errno, wasi.ESUCCESS)
	assertEqual(t, name, root)

	for fd := wasi.FD(0); fd < 3; fd++ {
		_, errno := s.FDPreStatGet(ctx, fd)
		assertEqual(t, errno, wasi.EBADF)
	}

	_, errno = s.FDPreStatGet(ctx, 42)
	assertEqual(t, errno, wasi.EBADF)
}

func testWriteRead(t *testing.T, ctx context.Context, newSystem newSystem) {
	s := newSystem(TestConfig{})

	fd := openFile(t, ctx, s, "data", wasi.OpenCreate, wasi.RegularFileRights)
	write(t, ctx, s, fd, "hello, ")
	write(t, ctx, s, fd, "world!")

	offset, errno := s.FDSeek(ctx, fd, 0, wasi.SeekStart)
	assertEqual(t, errno, wasi.ESUCCESS)
	assertEqual(t, offset, 0)

	a, b := make([]byte, 5), make([]byte, 20)
	n, errno := s.FDRead(ctx, fd, []wasi.IOVec{a, b})
	assertEqual(t, errno, wasi.ESUCCESS)
	assertEqual(t, n, 13)
	assertEqual(t, string(a)+string(b[:n-5]), "hello, world!")

	n, errno = s.FDRead(ctx, fd, []wasi.IOVec{b})
	assertEqual(t, errno, wasi.ESUCCESS)
	assertEqual(t, n, 0)

	stat, errno := s.FDFileStatGet(ctx, fd)
	assertEqual(t, errno, wasi.ESUCCESS)
	assertEqual(t, stat.FileType, wasi.RegularFileType)
	assertEqual(t, stat.Size, 13)
}

func testPreadPwrite(t *testing.T, ctx context.Context, newSystem newSystem) {
	s := newSystem(TestConfig{})

	fd := openFile(t, ctx, s, "data", wasi.OpenCreate, wasi.RegularFileRights)
	write(t, ctx, s, fd, "0123456789")

	n, errno := s.FDPwrite(ctx, fd, []wasi.IOVec{[]byte("ab")}, 2)
	assertEqual(t, errno, wasi.ESUCCESS)
	assertEqual(t, n, 2)

	buf := make([]byte, 4)
	n, errno = s.FDPread(ctx, fd, []wasi.IOVec{buf}, 1)
	assertEqual(t, errno, wasi.ESUCCESS)
	assertEqual(t, n, 4)
	assertEqual(t, string(buf), "1ab4")

	offset, errno := s.FDTell(ctx, fd)
	assertEqual(t, errno, wasi.ESUCCESS)
	assertEqual(t, offset, 10)
}

func testSetSize(t *testing.T, ctx context.Context, newSystem newSystem) {
	s := newSystem(TestConfig{})

	fd := openFile(t, ctx, s, "data", wasi.OpenCreate, wasi.RegularFileRights)
	write(t, ctx, s, fd, "abc")
	assertEqual(t, s.FDFileStatSetSize(ctx, fd, 8), wasi.ESUCCESS)

	buf := make([]byte, 8)
	n, errno := s.FDPread(ctx, fd, []wasi.IOVec{buf}, 0)
	assertEqual(t, errno, wasi.ESUCCESS)
	assertEqual(t, n, 8)
	assertEqual(t, string(buf), "abc\x00\x00\x00\x00\x00")
}

func testDirectories(t *testing.T, ctx context.Context, newSystem newSystem) {
	root := t.TempDir()
	s := newSystem(TestConfig{RootFS: root})

	assertEqual(t, s.PathCreateDirectory(ctx, rootFD, "sub"), wasi.ESUCCESS)
	assertEqual(t, s.PathCreateDirectory(ctx, rootFD, "sub"), wasi.EEXIST)

	stat, errno := s.PathFileStatGet(ctx, rootFD, 0, "sub")
	assertEqual(t, errno, wasi.ESUCCESS)
	assertEqual(t, stat.FileType, wasi.DirectoryType)

	assertOK(t, os.WriteFile(filepath.Join(root, "sub", "file"), nil, 0666))
	assertEqual(t, s.PathRemoveDirectory(ctx, rootFD, "sub"), wasi.ENOTEMPTY)
	assertEqual(t, s.PathUnlinkFile(ctx, rootFD, "sub/file"), wasi.ESUCCESS)
	assertEqual(t, s.PathRemoveDirectory(ctx, rootFD, "sub"), wasi.ESUCCESS)

	_, errno = s.PathFileStatGet(ctx, rootFD, 0, "sub")
	assertEqual(t, errno, wasi.ENOENT)
}

func testRenameUnlink(t *testing.T, ctx context.Context, newSystem newSystem) {
	root := t.TempDir()
	s := newSystem(TestConfig{RootFS: root})

	assertOK(t, os.WriteFile(filepath.Join(root, "a"), []byte("A"), 0666))
	assertEqual(t, s.PathRename(ctx, rootFD, "a", rootFD, "b"), wasi.ESUCCESS)

	_, errno := s.PathFileStatGet(ctx, rootFD, 0, "a")
	assertEqual(t, errno, wasi.ENOENT)

	stat, errno := s.PathFileStatGet(ctx, rootFD, 0, "b")
	assertEqual(t, errno, wasi.ESUCCESS)
	assertEqual(t, stat.Size, 1)

	assertEqual(t, s.PathUnlinkFile(ctx, rootFD, "b"), wasi.ESUCCESS)
	assertEqual(t, s.PathUnlinkFile(ctx, rootFD, "b"), wasi.ENOENT)
}

func testSymlink(t *testing.T, ctx context.Context, newSystem newSystem) {
	root := t.TempDir()
	s := newSystem(TestConfig{RootFS: root})

	assertOK(t, os.WriteFile(filepath.Join(root, "target"), []byte("T"), 0666))
	assertEqual(t, s.PathSymlink(ctx, "target", rootFD, "link"), wasi.ESUCCESS)

	buf := make([]byte, 64)
	n, errno := s.PathReadLink(ctx, rootFD, "link", buf)
	assertEqual(t, errno, wasi.ESUCCESS)
	assertEqual(t, string(buf[:n]), "target")

	stat, errno := s.PathFileStatGet(ctx, rootFD, 0, "link")
	assertEqual(t, errno, wasi.ESUCCESS)
	assertEqual(t, stat.FileType, wasi.SymbolicLinkType)

	stat, errno = s.PathFileStatGet(ctx, rootFD, wasi.SymlinkFollow, "link")
	assertEqual(t, errno, wasi.ESUCCESS)
	assertEqual(t, stat.FileType, wasi.RegularFileType)
}

func testEscape(t *testing.T, ctx context.Context, newSystem newSystem) {
	s := newSystem(TestConfig{})

	for _, path := range []string{"../outside", "/etc/passwd", "a/../../outside"} {
		_, errno := s.PathOpen(ctx, rootFD, 0, path, 0, wasi.FDReadRight, 0, 0)
		assertEqual(t, errno, wasi.EPERM)
	}
}

func testReadDirWholeEntries(t *testing.T, ctx context.Context, newSystem newSystem) {
	root := t.TempDir()
	s := newSystem(TestConfig{RootFS: root})

	assertOK(t, os.WriteFile(filepath.Join(root, "file"), nil, 0666))

	fd := openFile(t, ctx, s, ".", wasi.OpenDirectory, wasi.FDReadDirRight)
	entries := make([]wasi.DirEntry, 8)

	n, errno := s.FDReadDir(ctx, fd, entries, 0, wasi.SizeOfDirent)
	assertEqual(t, errno, wasi.ESUCCESS)
	assertEqual(t, n, 0)

	var names []string
	var cookie wasi.DirCookie
	for {
		n, errno := s.FDReadDir(ctx, fd, entries, cookie, wasi.SizeOfDirent+len("file"))
		assertEqual(t, errno, wasi.ESUCCESS)
		if n == 0 {
			break
		}
		assertEqual(t, n, 1)
		names = append(names, string(entries[0].Name))
		cookie = entries[0].Next
	}
	assertEqual(t, len(names), 3)
}

func testCloseTwice(t *testing.T, ctx context.Context, newSystem newSystem) {
	s := newSystem(TestConfig{})

	fd := openFile(t, ctx, s, "data", wasi.OpenCreate, wasi.RegularFileRights)
	assertEqual(t, s.FDClose(ctx, fd), wasi.ESUCCESS)
	assertEqual(t, s.FDClose(ctx, fd), wasi.EBADF)
}

func testAllocate(t *testing.T, ctx context.Context, newSystem newSystem) {
	s := newSystem(TestConfig{})

	fd := openFile(t, ctx, s, "data", wasi.OpenCreate, wasi.RegularFileRights)
	errno := s.FDAllocate(ctx, fd, 0, 100)
	skipIfNotImplemented(t, errno)
	assertEqual(t, errno, wasi.ESUCCESS)

	stat, errno := s.FDFileStatGet(ctx, fd)
	assertEqual(t, errno, wasi.ESUCCESS)
	assertEqual(t, stat.Size, 100)
}
