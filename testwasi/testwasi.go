// Package testwasi provides small WebAssembly programs and a harness to run
// them against a wasi.System through the wazero host modules.
package testwasi

import (
	"context"
	"encoding/binary"
	"errors"

	"github.com/stealthrocket/wasi-aot"
	"github.com/stealthrocket/wasi-aot/abi"
	"github.com/stealthrocket/wasi-aot/imports/wasi_snapshot_preview1"
	"github.com/stealthrocket/wazergo"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/sys"
)

var (
	fdWrite = func(namespace string) Import {
		return Import{namespace, "fd_write", []byte{I32, I32, I32, I32}, []byte{I32}}
	}
	procExit = func(namespace string) Import {
		return Import{namespace, "proc_exit", []byte{I32}, nil}
	}
	argsSizesGet = func(namespace string) Import {
		return Import{namespace, "args_sizes_get", []byte{I32, I32}, []byte{I32}}
	}
	argsGet = func(namespace string) Import {
		return Import{namespace, "args_get", []byte{I32, I32}, []byte{I32}}
	}
)

// Hello returns a program writing "hello\n" to its standard output.
func Hello(namespace string) *Program {
	iovec := make([]byte, 8)
	binary.LittleEndian.PutUint32(iovec[0:], 16)
	binary.LittleEndian.PutUint32(iovec[4:], 6)
	return &Program{
		Imports: []Import{fdWrite(namespace)},
		Data: []Segment{
			{Offset: 0, Bytes: iovec},
			{Offset: 16, Bytes: []byte("hello\n")},
		},
		Code: Code(
			I32Const(1), I32Const(0), I32Const(1), I32Const(8), Call(0), Drop(),
		),
	}
}

// Exit returns a program calling proc_exit with code.
func Exit(namespace string, code int32) *Program {
	return &Program{
		Imports: []Import{procExit(namespace)},
		Code:    Code(I32Const(code), Call(0)),
	}
}

// Echo returns a program writing its command line arguments to its standard
// output, each followed by a null byte.
func Echo(namespace string) *Program {
	const (
		argc   = 0
		buflen = 4
		iovec  = 32
		nwrite = 40
		argv   = 64
		buf    = 1024
	)
	base := make([]byte, 4)
	binary.LittleEndian.PutUint32(base, buf)
	return &Program{
		Imports: []Import{argsSizesGet(namespace), argsGet(namespace), fdWrite(namespace)},
		Data:    []Segment{{Offset: iovec, Bytes: base}},
		Code: Code(
			I32Const(argc), I32Const(buflen), Call(0), Drop(),
			I32Const(argv), I32Const(buf), Call(1), Drop(),
			I32Const(iovec+4), I32Const(buflen), I32Load(), I32Store(),
			I32Const(1), I32Const(iovec), I32Const(1), I32Const(nwrite), Call(2), Drop(),
		),
	}
}

// Run instantiates program with both WASI host modules bound to system and
// returns the exit code of the guest. Traps are returned as errors along with
// their exit code.
func Run(ctx context.Context, program *Program, system wasi.System) (int, error) {
	runtime := wazero.NewRuntime(ctx)
	defer runtime.Close(ctx)

	instance := abi.New(system)
	for _, hostModule := range []wazergo.HostModule[*wasi_snapshot_preview1.Module]{
		wasi_snapshot_preview1.UnstableHostModule,
		wasi_snapshot_preview1.HostModule,
	} {
		mod, err := wazergo.Instantiate(ctx, runtime, hostModule,
			wasi_snapshot_preview1.WithInstance(instance),
		)
		if err != nil {
			return -1, err
		}
		ctx = wazergo.WithModuleInstance(ctx, mod)
	}

	mod, err := runtime.Instantiate(ctx, program.Bytes())
	if mod != nil {
		defer mod.Close(ctx)
	}

	var exitErr *sys.ExitError
	var trap wasi.Trap
	switch {
	case err == nil:
		return 0, nil
	case errors.As(err, &exitErr):
		return int(exitErr.ExitCode()), nil
	case errors.As(err, &trap):
		return trap.Kind.ExitCode(), trap
	default:
		return -1, err
	}
}
