// Package wasitest contains test suites shared by the wasi.System
// implementations.
package wasitest

import (
	"context"
	"testing"

	"github.com/stealthrocket/wasi-aot"
)

func testContext(t *testing.T) (context.Context, context.CancelFunc) {
	ctx, cancel := context.Background(), func() {}
	if deadline, ok := t.Deadline(); ok {
		ctx, cancel = context.WithDeadline(ctx, deadline)
	}
	return ctx, cancel
}

func assertOK(t *testing.T, err error) {
	if err != nil {
		t.Helper()
		t.Fatalf("unexpected error: %v", err)
	}
}

func assertEqual[T comparable](t *testing.T, got, want T) {
	if got != want {
		t.Helper()
		t.Fatalf("%T values mismatch\nwant = %+v\ngot  = %+v", want, want, got)
	}
}

func skipIfNotImplemented(t *testing.T, errno wasi.Errno) {
	if errno == wasi.ENOSYS || errno == wasi.ENOTSUP {
		t.Helper()
		t.Skip("operation not implemented on this system")
	}
}

func openFile(t *testing.T, ctx context.Context, s wasi.System, path string, oflags wasi.OpenFlags, rights wasi.Rights) wasi.FD {
	t.Helper()
	fd, errno := s.PathOpen(ctx, rootFD, 0, path, oflags, rights, 0, 0)
	assertEqual(t, errno, wasi.ESUCCESS)
	return fd
}

func write(t *testing.T, ctx context.Context, s wasi.System, fd wasi.FD, data string) {
	t.Helper()
	n, errno := s.FDWrite(ctx, fd, []wasi.IOVec{[]byte(data)})
	assertEqual(t, errno, wasi.ESUCCESS)
	assertEqual(t, int(n), len(data))
}
