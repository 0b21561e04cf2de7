package wasi_snapshot_preview1_test

import (
	"context"
	"io"
	"os"
	"reflect"
	"testing"

	"github.com/stealthrocket/wasi-aot"
	"github.com/stealthrocket/wasi-aot/abi"
	"github.com/stealthrocket/wasi-aot/imports/wasi_snapshot_preview1"
	"github.com/stealthrocket/wasi-aot/systems/unix"
	"github.com/stealthrocket/wasi-aot/testwasi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/api"
	"golang.org/x/exp/maps"
)

func TestHostModuleNames(t *testing.T) {
	assert.Equal(t, "wasi_snapshot_preview1", wasi_snapshot_preview1.HostModule.Name())
	assert.Equal(t, "wasi_unstable", wasi_snapshot_preview1.UnstableHostModule.Name())
}

func TestHostModuleFunctions(t *testing.T) {
	exports := abi.New(nil).Exports(abi.SnapshotPreview1)
	functions := wasi_snapshot_preview1.HostModule.Functions()

	assert.ElementsMatch(t, maps.Keys(exports), maps.Keys(functions))

	i32 := reflect.TypeOf(int32(0))
	i64 := reflect.TypeOf(int64(0))

	for name, fn := range functions {
		t.Run(name, func(t *testing.T) {
			export := reflect.TypeOf(exports[name])

			var params []api.ValueType
			for _, p := range fn.Params {
				params = append(params, p.ValueTypes()...)
			}
			var want []api.ValueType
			for i := 1; i < export.NumIn(); i++ {
				switch export.In(i) {
				case i32:
					want = append(want, api.ValueTypeI32)
				case i64:
					want = append(want, api.ValueTypeI64)
				default:
					t.Fatalf("unexpected parameter type %s", export.In(i))
				}
			}
			assert.Equal(t, want, params)

			var results []api.ValueType
			for _, r := range fn.Results {
				results = append(results, r.ValueTypes()...)
			}
			if export.NumOut() == 0 {
				assert.Empty(t, results)
			} else {
				assert.Equal(t, []api.ValueType{api.ValueTypeI32}, results)
			}
		})
	}
}

func TestInstantiateWithoutWASI(t *testing.T) {
	_, err := wasi_snapshot_preview1.HostModule.Instantiate(context.Background())
	assert.Error(t, err)
}

func TestInstantiateSharedInstance(t *testing.T) {
	ctx := context.Background()
	instance := abi.New(&unix.System{})

	mod, err := wasi_snapshot_preview1.HostModule.Instantiate(ctx,
		wasi_snapshot_preview1.WithInstance(instance),
	)
	require.NoError(t, err)
	assert.Same(t, instance, mod.Instance())
	assert.NoError(t, mod.Close(ctx))
}

func newSystem(t *testing.T, args ...string) (*unix.System, *os.File) {
	t.Helper()

	stdout, err := os.CreateTemp(t.TempDir(), "stdout")
	require.NoError(t, err)
	t.Cleanup(func() { stdout.Close() })

	system := &unix.System{Args: args}
	stdio := unix.DefaultStdio
	stdio.Stdout = int(stdout.Fd())
	require.NoError(t, system.OpenPreopens(wasi.MakePreopens(t.TempDir()), stdio))
	t.Cleanup(func() { system.Close(context.Background()) })
	return system, stdout
}

func readAll(t *testing.T, f *os.File) string {
	t.Helper()
	_, err := f.Seek(0, io.SeekStart)
	require.NoError(t, err)
	b, err := io.ReadAll(f)
	require.NoError(t, err)
	return string(b)
}

func TestRunHello(t *testing.T) {
	for _, namespace := range abi.Namespaces {
		t.Run(namespace, func(t *testing.T) {
			system, stdout := newSystem(t)

			exitCode, err := testwasi.Run(context.Background(), testwasi.Hello(namespace), system)
			require.NoError(t, err)
			assert.Equal(t, 0, exitCode)
			assert.Equal(t, "hello\n", readAll(t, stdout))
		})
	}
}

func TestRunEcho(t *testing.T) {
	system, stdout := newSystem(t, "echo", "a", "bc")

	exitCode, err := testwasi.Run(context.Background(), testwasi.Echo(abi.SnapshotPreview1), system)
	require.NoError(t, err)
	assert.Equal(t, 0, exitCode)
	assert.Equal(t, "echo\x00a\x00bc\x00", readAll(t, stdout))
}

func TestRunExit(t *testing.T) {
	for _, namespace := range abi.Namespaces {
		t.Run(namespace, func(t *testing.T) {
			system, _ := newSystem(t)

			var exited []int
			system.Exit = func(ctx context.Context, code int) error {
				exited = append(exited, code)
				return nil
			}

			exitCode, err := testwasi.Run(context.Background(), testwasi.Exit(namespace, 3), system)
			require.NoError(t, err)
			assert.Equal(t, 3, exitCode)
			assert.Equal(t, []int{3}, exited)
		})
	}
}
