package trace_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stealthrocket/wasi-aot"
	"github.com/stealthrocket/wasi-aot/systems/unix"
	"github.com/stealthrocket/wasi-aot/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type recorder []trace.Record

func (r *recorder) Write(ctx context.Context, record trace.Record) error {
	*r = append(*r, record)
	return nil
}

type failingSink struct{ err error }

func (s failingSink) Write(context.Context, trace.Record) error { return s.err }

var epoch = time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)

// clock advances by one millisecond on each call.
func clock() func() time.Time {
	now := epoch
	return func() time.Time {
		t := now
		now = now.Add(time.Millisecond)
		return t
	}
}

func newSystem(t *testing.T, sink trace.Sink) (*trace.System, string) {
	t.Helper()
	dir := t.TempDir()
	host := &unix.System{Args: []string{"prog"}}
	require.NoError(t, host.OpenPreopens(wasi.MakePreopens(dir), unix.DefaultStdio))

	s := &trace.System{
		System:   host,
		Sink:     sink,
		Instance: uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Now:      clock(),
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	return s, dir
}

func TestSystemRecords(t *testing.T) {
	ctx := context.Background()
	var records recorder
	s, _ := newSystem(t, &records)

	_, errno := s.ArgsGet(ctx)
	require.Equal(t, wasi.ESUCCESS, errno)

	fd, errno := s.PathOpen(ctx, 3, 0, "data", wasi.OpenCreate, wasi.FDWriteRight, 0, 0)
	require.Equal(t, wasi.ESUCCESS, errno)

	_, errno = s.FDWrite(ctx, fd, []wasi.IOVec{[]byte("ab"), []byte("cde")})
	require.Equal(t, wasi.ESUCCESS, errno)

	_, errno = s.FDRead(ctx, fd, []wasi.IOVec{make([]byte, 4)})
	require.Equal(t, wasi.EBADF, errno)

	instance := s.Instance
	want := []trace.Record{
		{Seq: 1, Instance: instance, Time: epoch, Func: "args_get", Result: `["prog"]`, Errno: "ESUCCESS", Duration: time.Millisecond},
		{Seq: 2, Instance: instance, Time: epoch.Add(2 * time.Millisecond), Func: "path_open",
			Args:   `3, 0, "data", ` + wasi.OpenCreate.String() + ", " + wasi.FDWriteRight.String() + ", " + wasi.Rights(0).String() + ", " + wasi.FDFlags(0).String(),
			Result: "4", Errno: "ESUCCESS", Duration: time.Millisecond},
		{Seq: 3, Instance: instance, Time: epoch.Add(4 * time.Millisecond), Func: "fd_write", Args: "4, [2 3]", Result: "5", Errno: "ESUCCESS", Duration: time.Millisecond},
		{Seq: 4, Instance: instance, Time: epoch.Add(6 * time.Millisecond), Func: "fd_read", Args: "4, [4]", Errno: "EBADF", Duration: time.Millisecond},
	}
	if diff := cmp.Diff(want, []trace.Record(records)); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestSystemSinkError(t *testing.T) {
	ctx := context.Background()
	errSink := errors.New("sink failed")
	var records recorder
	s, _ := newSystem(t, trace.Multi(&records, failingSink{errSink}))

	assert.Equal(t, wasi.ESUCCESS, s.SchedYield(ctx))
	assert.Equal(t, wasi.ESUCCESS, s.SchedYield(ctx))
	assert.ErrorIs(t, s.Err(), errSink)
	assert.Len(t, records, 2)
}

func TestCSVRoundTrip(t *testing.T) {
	for _, name := range []string{"trace.csv", "trace.csv.zst"} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), name)

			file, err := trace.Create(path)
			require.NoError(t, err)

			var records recorder
			s, _ := newSystem(t, trace.Multi(file, &records))
			_, errno := s.FDPreStatDirName(ctx, 3)
			require.Equal(t, wasi.ESUCCESS, errno)
			_, errno = s.FDPreStatGet(ctx, 0)
			require.Equal(t, wasi.EBADF, errno)
			require.NoError(t, file.Close())

			got, err := trace.ReadFile(path)
			require.NoError(t, err)
			if diff := cmp.Diff([]trace.Record(records), got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("records mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadEmpty(t *testing.T) {
	records, err := trace.Read(strings.NewReader(""))
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestLogger(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s, _ := newSystem(t, trace.Logger{Logger: logger})
	assert.Equal(t, wasi.ESUCCESS, s.SchedYield(ctx))

	line := buf.String()
	assert.Contains(t, line, "msg=sched_yield")
	assert.Contains(t, line, "errno=ESUCCESS")
	assert.Contains(t, line, "instance=6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	assert.Contains(t, line, "duration=1ms")
}
