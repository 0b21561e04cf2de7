package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stealthrocket/wasi-aot"
	"github.com/stealthrocket/wasi-aot/imports"
	"github.com/stealthrocket/wasi-aot/trace"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
	"golang.org/x/exp/slog"
)

var runCmd = &cobra.Command{
	Use:   "run <module.wasm> [--] [args...]",
	Short: "Run a WebAssembly module",
	Long: `Run a WebAssembly module with access to the WASI preview 1 host functions.

The module exits with the code passed to proc_exit, or with the code of the
trap that terminated it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: cmdFunc(run),
}

func init() {
	flags := runCmd.Flags()
	flags.StringArrayVar(&cfg.Dirs, "dir", nil, "directory to preopen, of the form path[:path][:ro]")
	flags.StringArrayVar(&cfg.Env, "env", nil, "environment variable passed to the module, of the form NAME=VALUE")
	flags.Uint32Var(&cfg.MaxPages, "max-pages", 0, "maximum number of 64 KiB pages of the guest memory")
	flags.StringVar(&cfg.Trace, "trace", "", "trace the WASI calls to a file, or - for stderr")
	flags.StringVar(&cfg.TraceFormat, "trace-format", cfg.TraceFormat, "trace format, one of csv, log")
	rootCmd.AddCommand(runCmd)
}

func run(ctx context.Context, args []string) error {
	wasmFile := args[0]
	wasmName := filepath.Base(wasmFile)
	wasmCode, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("could not read WASM file '%s': %w", wasmFile, err)
	}

	args = args[1:]
	if len(args) > 0 && args[0] == "--" {
		args = args[1:]
	}

	runtimeConfig := wazero.NewRuntimeConfig()
	if cfg.MaxPages > 0 {
		runtimeConfig = runtimeConfig.WithMemoryLimitPages(cfg.MaxPages)
	}
	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeConfig)
	defer runtime.Close(ctx)

	compiled, err := runtime.CompileModule(ctx, wasmCode)
	if err != nil {
		return fmt.Errorf("could not compile WASM file '%s': %w", wasmFile, err)
	}
	if unsupported := imports.UnsupportedImports(compiled); len(unsupported) > 0 {
		return fmt.Errorf("%s imports unsupported WASI functions: %q", wasmName, unsupported)
	}

	id := uuid.New()
	log := logger.With(slog.String("module", wasmName))

	builder := imports.NewBuilder().
		WithName(wasmName).
		WithInstanceID(id).
		WithArgs(args...).
		WithEnv(cfg.Env...).
		WithDirs(cfg.Dirs...).
		WithMaxPages(cfg.MaxPages).
		WithNamespaces(imports.DetectNamespaces(compiled)...)

	if cfg.Trace != "" {
		sink, closeTrace, err := openTrace(cfg.Trace, cfg.TraceFormat)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeTrace(); err != nil {
				log.Error("closing trace", slog.String("error", err.Error()))
			}
		}()
		builder = builder.WithWrappers(trace.Wrap(sink, id))
	}

	ctx, instance, err := builder.Instantiate(ctx, runtime)
	if err != nil {
		return err
	}
	defer instance.Close(ctx)
	log = log.With(slog.String("instance", instance.ID.String()))

	log.Debug("starting module",
		slog.Any("args", args),
		slog.Any("dirs", cfg.Dirs),
	)

	var mod api.Module
	var instantiateErr error
	exitCode, err := wasi.Run(func() {
		mod, instantiateErr = runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(wasmName))
	})
	if mod != nil {
		defer mod.Close(ctx)
	}
	if instantiateErr != nil {
		exitCode, err = exitStatus(instantiateErr)
	}
	if err != nil {
		log.Error("module terminated",
			slog.Int("exit_code", exitCode),
			slog.String("error", err.Error()),
		)
	} else {
		log.Debug("module exited", slog.Int("exit_code", exitCode))
	}
	if exitCode != 0 {
		return &exitError{code: exitCode}
	}
	return nil
}

// exitStatus maps the error returned by wazero when instantiating the module
// to an exit code. A nil error is returned when the guest called proc_exit.
func exitStatus(err error) (int, error) {
	var exitErr *sys.ExitError
	var trap wasi.Trap
	switch {
	case errors.As(err, &exitErr):
		return int(exitErr.ExitCode()), nil
	case errors.As(err, &trap):
		return trap.Kind.ExitCode(), trap
	default:
		return 1, err
	}
}

func openTrace(path, format string) (trace.Sink, func() error, error) {
	switch format {
	case "log":
		if path == "-" {
			return trace.Logger{Logger: logger}, func() error { return nil }, nil
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, nil, err
		}
		traceConfig := cfg
		traceConfig.LogLevel = "debug"
		return trace.Logger{Logger: traceConfig.logger(f)}, f.Close, nil
	default:
		if path == "-" {
			sink := trace.NewCSV(os.Stderr)
			return sink, sink.Flush, nil
		}
		f, err := trace.Create(path)
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	}
}
