package wasitest

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stealthrocket/wasi-aot"
)

var proc = testSuite{
	"ProcExit returns control to the caller": func(t *testing.T, ctx context.Context, newSystem newSystem) {
		s := newSystem(TestConfig{})
		assertEqual(t, s.ProcExit(ctx, 42), wasi.ESUCCESS)
	},

	"SchedYield succeeds": func(t *testing.T, ctx context.Context, newSystem newSystem) {
		s := newSystem(TestConfig{})
		assertEqual(t, s.SchedYield(ctx), wasi.ESUCCESS)
	},

	"ArgsSizesGet counts null terminators": func(t *testing.T, ctx context.Context, newSystem newSystem) {
		for _, test := range []struct {
			args         []string
			count, bytes int
		}{
			{nil, 0, 0},
			{[]string{""}, 1, 1},
			{[]string{"hello", "world", ""}, 3, 13},
		} {
			s := newSystem(TestConfig{Args: test.args})
			count, bytes, errno := s.ArgsSizesGet(ctx)
			assertEqual(t, errno, wasi.ESUCCESS)
			assertEqual(t, count, test.count)
			assertEqual(t, bytes, test.bytes)
		}
	},

	"ArgsGet and EnvironGet preserve the order of values": func(t *testing.T, ctx context.Context, newSystem newSystem) {
		s := newSystem(TestConfig{
			Args:    []string{"a", "b"},
			Environ: []string{"B=2", "A=1"},
		})
		args, errno := s.ArgsGet(ctx)
		assertEqual(t, errno, wasi.ESUCCESS)
		assertEqual(t, strings.Join(args, " "), "a b")

		env, errno := s.EnvironGet(ctx)
		assertEqual(t, errno, wasi.ESUCCESS)
		assertEqual(t, strings.Join(env, " "), "B=2 A=1")
	},

	"EnvironSizesGet agrees with SizesGet": func(t *testing.T, ctx context.Context, newSystem newSystem) {
		for _, environ := range [][]string{nil, {"hello=1", "world=2"}, {"EMPTY="}} {
			s := newSystem(TestConfig{Environ: environ})
			count, bytes, errno := s.EnvironSizesGet(ctx)
			wantCount, wantBytes := wasi.SizesGet(environ)
			assertEqual(t, errno, wasi.ESUCCESS)
			assertEqual(t, count, wantCount)
			assertEqual(t, bytes, wantBytes)
		}
	},

	"ClockResGet with an invalid clock id returns EINVAL": func(t *testing.T, ctx context.Context, newSystem newSystem) {
		s := newSystem(TestConfig{
			Now: time.Now,
		})
		_, errno := s.ClockResGet(ctx, 42)
		assertEqual(t, errno, wasi.EINVAL)
	},

	"ClockTimeGet with an invalid clock id returns EINVAL": func(t *testing.T, ctx context.Context, newSystem newSystem) {
		s := newSystem(TestConfig{
			Now: time.Now,
		})
		_, errno := s.ClockTimeGet(ctx, 42, 0)
		assertEqual(t, errno, wasi.EINVAL)
	},

	"ClockTimeGet returns the realtime clock": func(t *testing.T, ctx context.Context, newSystem newSystem) {
		now := time.Unix(1e9, 42)
		s := newSystem(TestConfig{
			Now: func() time.Time { return now },
		})
		ts, errno := s.ClockTimeGet(ctx, wasi.Realtime, 1)
		assertEqual(t, errno, wasi.ESUCCESS)
		assertEqual(t, ts, wasi.Timestamp(now.UnixNano()))
	},

	"RandomGet fills the buffer from the random source": func(t *testing.T, ctx context.Context, newSystem newSystem) {
		s := newSystem(TestConfig{
			Rand: bytes.NewReader([]byte("0123456789")),
		})
		b := make([]byte, 4)
		assertEqual(t, s.RandomGet(ctx, b), wasi.ESUCCESS)
		assertEqual(t, string(b), "0123")
	},
}
