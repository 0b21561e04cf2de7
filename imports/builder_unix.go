//go:build unix

package imports

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stealthrocket/wasi-aot"
	"github.com/stealthrocket/wasi-aot/abi"
	"github.com/stealthrocket/wasi-aot/imports/wasi_snapshot_preview1"
	"github.com/stealthrocket/wasi-aot/systems/unix"
	"github.com/stealthrocket/wazergo"
	"github.com/tetratelabs/wazero"
)

// readOnlyRights are removed from the preopens of read-only directories.
const readOnlyRights = wasi.WriteRights |
	wasi.PathCreateDirectoryRight |
	wasi.PathCreateFileRight |
	wasi.PathLinkTargetRight |
	wasi.PathRenameSourceRight |
	wasi.PathRenameTargetRight |
	wasi.PathFileStatSetSizeRight |
	wasi.PathFileStatSetTimesRight |
	wasi.FDFileStatSetTimesRight |
	wasi.PathSymlinkRight |
	wasi.PathUnlinkFileRight |
	wasi.PathRemoveDirectoryRight

// Instantiate instantiates the WASI host modules and binds them to the
// specified context. The returned abi.Instance is shared by all the
// namespaces; the caller must close it to release the host descriptors.
func (b *Builder) Instantiate(ctx context.Context, runtime wazero.Runtime) (context.Context, *abi.Instance, error) {
	if len(b.errors) > 0 {
		return ctx, nil, errors.Join(b.errors...)
	}

	stdio := unix.DefaultStdio
	if b.customStdio {
		stdio = unix.Stdio{Stdin: b.stdin, Stdout: b.stdout, Stderr: b.stderr}
	}

	host := &unix.System{
		Args:               append([]string{pick(b.name != "", b.name, defaultName)}, b.args...),
		Environ:            b.env,
		Realtime:           pick(b.realtime != nil, b.realtime, defaultRealtime),
		RealtimePrecision:  pick(b.realtimePrecision > 0, b.realtimePrecision, defaultRealtimePrecision),
		Monotonic:          pick(b.monotonic != nil, b.monotonic, defaultMonotonic),
		MonotonicPrecision: pick(b.monotonicPrecision > 0, b.monotonicPrecision, defaultMonotonicPrecision),
		Yield:              pick(b.yield != nil, b.yield, defaultYield),
		Rand:               pick(b.rand != nil, b.rand, defaultRand),
		Exit:               b.exit,
	}

	preopens := b.preopens()
	if err := host.OpenPreopens(preopens, stdio); err != nil {
		host.Close(context.Background())
		return ctx, nil, err
	}

	for i, m := range b.mounts {
		if !m.readOnly {
			continue
		}
		fd := preopens[3+i].FD
		errno := host.SetRights(fd,
			wasi.DirectoryRights&^readOnlyRights,
			wasi.InheritingDirectoryRights&^readOnlyRights,
		)
		if errno != wasi.ESUCCESS {
			host.Close(context.Background())
			return ctx, nil, fmt.Errorf("unable to make %q read-only: %w", m.dir, errno)
		}
	}

	var system wasi.System = host
	for _, wrap := range b.wrappers {
		system = wrap(system)
	}

	namespaces := b.namespaces
	if len(namespaces) == 0 {
		namespaces = abi.Namespaces
	}

	instance := abi.New(system)
	if b.id != uuid.Nil {
		instance.ID = b.id
	}
	for _, namespace := range namespaces {
		hostModule := wasi_snapshot_preview1.HostModule
		if namespace == abi.Unstable {
			hostModule = wasi_snapshot_preview1.UnstableHostModule
		}
		module, err := wazergo.Instantiate(ctx, runtime, hostModule,
			wasi_snapshot_preview1.WithInstance(instance),
			wasi_snapshot_preview1.WithMaxPages(b.maxPages),
		)
		if err != nil {
			instance.Close(context.Background())
			return ctx, nil, fmt.Errorf("unable to instantiate %s: %w", namespace, err)
		}
		ctx = wazergo.WithModuleInstance(ctx, module)
	}
	return ctx, instance, nil
}

func pick[T any](ok bool, value, fallback T) T {
	if ok {
		return value
	}
	return fallback
}
