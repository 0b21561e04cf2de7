package wasitest

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stealthrocket/wasi-aot"
)

var fsys = testSuite{
	"the directory view passes the io/fs conformance tests": testFSConformance,
	"the directory view reads file contents":                testFSReadFile,
	"the directory view cannot escape its root":              testFSEscape,
	"the directory view requires a directory":                testFSNotDir,
}

func makeTree(t *testing.T, root string) {
	t.Helper()
	assertOK(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0755))
	assertOK(t, os.WriteFile(filepath.Join(root, "hello.txt"), []byte("hello, world!\n"), 0644))
	assertOK(t, os.WriteFile(filepath.Join(root, "a", "one"), []byte("1"), 0644))
	assertOK(t, os.WriteFile(filepath.Join(root, "a", "b", "two"), []byte("22"), 0644))
	assertOK(t, os.WriteFile(filepath.Join(root, "a", "b", "empty"), nil, 0644))
}

func testFSConformance(t *testing.T, ctx context.Context, newSystem newSystem) {
	root := t.TempDir()
	makeTree(t, root)
	s := newSystem(TestConfig{RootFS: root})

	dir, err := wasi.FS(ctx, s, rootFD)
	assertOK(t, err)
	assertOK(t, fstest.TestFS(dir, "hello.txt", "a/one", "a/b/two", "a/b/empty"))
}

func testFSReadFile(t *testing.T, ctx context.Context, newSystem newSystem) {
	root := t.TempDir()
	makeTree(t, root)
	s := newSystem(TestConfig{RootFS: root})

	dir, err := wasi.FS(ctx, s, rootFD)
	assertOK(t, err)

	b, err := fs.ReadFile(dir, "a/b/two")
	assertOK(t, err)
	assertEqual(t, string(b), "22")

	entries, err := fs.ReadDir(dir, "a")
	assertOK(t, err)
	assertEqual(t, len(entries), 2)
	assertEqual(t, entries[0].Name(), "b")
	assertEqual(t, entries[0].IsDir(), true)
	assertEqual(t, entries[1].Name(), "one")

	_, err = fs.ReadFile(dir, "missing")
	assertEqual(t, errors.Is(err, wasi.ENOENT), true)
}

func testFSEscape(t *testing.T, ctx context.Context, newSystem newSystem) {
	s := newSystem(TestConfig{})

	dir, err := wasi.FS(ctx, s, rootFD)
	assertOK(t, err)

	_, err = dir.Open("../outside")
	assertEqual(t, errors.Is(err, fs.ErrInvalid), true)
}

func testFSNotDir(t *testing.T, ctx context.Context, newSystem newSystem) {
	s := newSystem(TestConfig{})

	_, err := wasi.FS(ctx, s, 1)
	assertEqual(t, errors.Is(err, wasi.ENOTDIR), true)

	_, err = wasi.FS(ctx, s, 42)
	assertEqual(t, errors.Is(err, wasi.EBADF), true)
}
