package wasi_test

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/stealthrocket/wasi-aot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrno(t *testing.T) {
	for errno := wasi.Errno(0); errno < wasi.ENOTCAPABLE; errno++ {
		t.Run(errno.Name(), func(t *testing.T) {
			e1 := errno.Syscall()
			e2 := wasi.MakeErrno(e1)
			if e2 != errno {
				t.Errorf("conversion to syscall.Errno did not yield the same error code: want=%d got=%d", errno, e2)
			}
		})
	}
}

func TestMakeErrno(t *testing.T) {
	tests := []struct {
		error error
		errno wasi.Errno
	}{
		{nil, wasi.ESUCCESS},
		{syscall.EAGAIN, wasi.EAGAIN},
		{context.Canceled, wasi.ECANCELED},
		{context.DeadlineExceeded, wasi.ETIMEDOUT},
		{io.ErrUnexpectedEOF, wasi.EIO},
		{fs.ErrClosed, wasi.EIO},
		{net.ErrClosed, wasi.EIO},
		{syscall.EPERM, wasi.EPERM},
		{syscall.ENOENT, wasi.ENOENT},
		{&os.PathError{Op: "open", Path: "x", Err: syscall.EEXIST}, wasi.EEXIST},
		{fmt.Errorf("wrapped: %w", syscall.ENOTDIR), wasi.ENOTDIR},
		{wasi.EAGAIN, wasi.EAGAIN},
		{wasi.ENOTCAPABLE, wasi.ENOTCAPABLE},
		{os.ErrDeadlineExceeded, wasi.ETIMEDOUT},
	}

	for _, test := range tests {
		t.Run(fmt.Sprint(test.error), func(t *testing.T) {
			if errno := wasi.MakeErrno(test.error); errno != test.errno {
				t.Errorf("error mismatch: want=%d got=%d (%s)", test.errno, errno, errno)
			}
		})
	}
}

func TestMakeErrnoUnmapped(t *testing.T) {
	exitCode, err := wasi.Run(func() {
		wasi.MakeErrno(syscall.Errno(4095))
	})
	assert.Equal(t, 251, exitCode)

	var trap wasi.Trap
	require.ErrorAs(t, err, &trap)
	assert.Equal(t, wasi.UnmappedErrno, trap.Kind)
}

func TestErrnoStrings(t *testing.T) {
	assert.Equal(t, "ENOTCAPABLE", wasi.ENOTCAPABLE.Name())
	assert.Equal(t, "ESUCCESS", wasi.ESUCCESS.Name())
	assert.NotEmpty(t, wasi.EBADF.Error())
	assert.Equal(t, "Errno(1000)", wasi.Errno(1000).Name())
}
