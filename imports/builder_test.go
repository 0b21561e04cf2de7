//go:build unix

package imports_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stealthrocket/wasi-aot"
	"github.com/stealthrocket/wasi-aot/abi"
	"github.com/stealthrocket/wasi-aot/imports"
	"github.com/stealthrocket/wasi-aot/testwasi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
)

func instantiate(t *testing.T, b *imports.Builder) (context.Context, wazero.Runtime, *abi.Instance) {
	t.Helper()
	ctx := context.Background()
	runtime := wazero.NewRuntime(ctx)
	t.Cleanup(func() { runtime.Close(ctx) })

	ctx, instance, err := b.Instantiate(ctx, runtime)
	require.NoError(t, err)
	t.Cleanup(func() { instance.Close(ctx) })
	return ctx, runtime, instance
}

func TestBuilderInvalidDirs(t *testing.T) {
	ctx := context.Background()
	runtime := wazero.NewRuntime(ctx)
	defer runtime.Close(ctx)

	for _, dir := range []string{"/a:/b", "/a:/a:/a"} {
		_, _, err := imports.NewBuilder().WithDirs(dir).Instantiate(ctx, runtime)
		assert.Error(t, err, dir)
	}
}

func TestBuilderInvalidNamespace(t *testing.T) {
	ctx := context.Background()
	runtime := wazero.NewRuntime(ctx)
	defer runtime.Close(ctx)

	_, _, err := imports.NewBuilder().WithNamespaces("env").Instantiate(ctx, runtime)
	assert.Error(t, err)
}

func TestBuilderDefaultPreopens(t *testing.T) {
	ctx, _, instance := instantiate(t, imports.NewBuilder())
	system := instance.System()

	for _, p := range wasi.DefaultPreopens[3:] {
		name, errno := system.FDPreStatDirName(ctx, p.FD)
		require.Equal(t, wasi.ESUCCESS, errno)
		assert.Equal(t, p.Path, name)
	}

	args, errno := system.ArgsGet(ctx)
	require.Equal(t, wasi.ESUCCESS, errno)
	assert.Equal(t, []string{"wasiaot-module"}, args)
}

func TestBuilderInstanceID(t *testing.T) {
	id := uuid.New()
	_, _, instance := instantiate(t, imports.NewBuilder().WithInstanceID(id))
	assert.Equal(t, id, instance.ID)

	_, _, other := instantiate(t, imports.NewBuilder())
	assert.NotEqual(t, uuid.Nil, other.ID)
	assert.NotEqual(t, id, other.ID)
}

func TestBuilderReadOnlyDir(t *testing.T) {
	rw, ro := t.TempDir(), t.TempDir()
	ctx, _, instance := instantiate(t, imports.NewBuilder().
		WithName("prog").
		WithArgs("-x").
		WithDirs(rw, ro+":"+ro+":ro"))
	system := instance.System()

	args, errno := system.ArgsGet(ctx)
	require.Equal(t, wasi.ESUCCESS, errno)
	assert.Equal(t, []string{"prog", "-x"}, args)

	fd, errno := system.PathOpen(ctx, 3, 0, "file", wasi.OpenCreate, wasi.FDWriteRight, 0, 0)
	require.Equal(t, wasi.ESUCCESS, errno)
	assert.Equal(t, wasi.ESUCCESS, system.FDClose(ctx, fd))

	_, errno = system.PathOpen(ctx, 4, 0, "file", wasi.OpenCreate, wasi.FDWriteRight, 0, 0)
	assert.Equal(t, wasi.ENOTCAPABLE, errno)
	assert.Equal(t, wasi.ENOTCAPABLE, system.PathCreateDirectory(ctx, 4, "sub"))

	require.NoError(t, os.WriteFile(filepath.Join(ro, "data"), []byte("ro"), 0644))
	fd, errno = system.PathOpen(ctx, 4, 0, "data", 0, wasi.FDReadRight, 0, 0)
	require.Equal(t, wasi.ESUCCESS, errno)

	buf := make([]byte, 8)
	n, errno := system.FDRead(ctx, fd, []wasi.IOVec{buf})
	require.Equal(t, wasi.ESUCCESS, errno)
	assert.Equal(t, "ro", string(buf[:n]))
}

func TestBuilderRunGuest(t *testing.T) {
	stdout, err := os.CreateTemp(t.TempDir(), "stdout")
	require.NoError(t, err)
	defer stdout.Close()

	ctx, runtime, _ := instantiate(t, imports.NewBuilder().
		WithStdio(int(os.Stdin.Fd()), int(stdout.Fd()), int(os.Stderr.Fd())).
		WithDirs(t.TempDir()))

	mod, err := runtime.Instantiate(ctx, testwasi.Hello(abi.Unstable).Bytes())
	require.NoError(t, err)
	require.NoError(t, mod.Close(ctx))

	_, err = stdout.Seek(0, io.SeekStart)
	require.NoError(t, err)
	b, err := io.ReadAll(stdout)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(b))
}

func TestDetectNamespaces(t *testing.T) {
	ctx := context.Background()
	runtime := wazero.NewRuntime(ctx)
	defer runtime.Close(ctx)

	for _, namespace := range abi.Namespaces {
		compiled, err := runtime.CompileModule(ctx, testwasi.Exit(namespace, 0).Bytes())
		require.NoError(t, err)
		assert.Equal(t, []string{namespace}, imports.DetectNamespaces(compiled))
		assert.Empty(t, imports.UnsupportedImports(compiled))
	}
}

func TestUnsupportedImports(t *testing.T) {
	ctx := context.Background()
	runtime := wazero.NewRuntime(ctx)
	defer runtime.Close(ctx)

	program := &testwasi.Program{
		Imports: []testwasi.Import{
			{Module: abi.SnapshotPreview1, Name: "sock_open", Params: []byte{testwasi.I32, testwasi.I32, testwasi.I32}, Results: []byte{testwasi.I32}},
			{Module: abi.SnapshotPreview1, Name: "fd_close", Params: []byte{testwasi.I32}, Results: []byte{testwasi.I32}},
			{Module: "env", Name: "memory_grow", Params: []byte{testwasi.I32}, Results: []byte{testwasi.I32}},
		},
	}
	compiled, err := runtime.CompileModule(ctx, program.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"wasi_snapshot_preview1.sock_open"}, imports.UnsupportedImports(compiled))
	assert.Equal(t, []string{abi.SnapshotPreview1}, imports.DetectNamespaces(compiled))
}
