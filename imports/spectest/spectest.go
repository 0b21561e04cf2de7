// Package spectest provides the host environment imported by the programs of
// the WebAssembly specification test suite.
package spectest

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/stealthrocket/wazergo"
	. "github.com/stealthrocket/wazergo/types"
	"github.com/tetratelabs/wazero/api"
)

const HostModuleName = "spectest"

// Values of the globals and table exported by the spectest environment.
// wazero host modules can only export functions, embedders linking compiled
// code against the environment use these constants instead.
const (
	GlobalI32   int32   = 42
	GlobalF32   float32 = 42.0
	GlobalF64   float64 = 420
	TableLength         = 10
)

// HostModule is a wazero host module for the spectest environment.
var HostModule wazergo.HostModule[*Module] = functions{
	"print":     printShape0((*Module).Print),
	"print_i32": printShape((*Module).PrintI32),
	"print_i64": printShape((*Module).PrintI64),
}

// Option configures the host module.
type Option = wazergo.Option[*Module]

// WithOutput sets the writer that the print functions write to. It defaults
// to os.Stdout.
func WithOutput(w io.Writer) Option {
	return wazergo.OptionFunc(func(m *Module) { m.output = w })
}

type functions wazergo.Functions[*Module]

func (f functions) Name() string {
	return HostModuleName
}

func (f functions) Functions() wazergo.Functions[*Module] {
	return (wazergo.Functions[*Module])(f)
}

func (f functions) Instantiate(ctx context.Context, opts ...Option) (*Module, error) {
	mod := &Module{output: os.Stdout}
	wazergo.Configure(mod, opts...)
	return mod, nil
}

type Module struct {
	output io.Writer
}

func (m *Module) Print(ctx context.Context) {
	fmt.Fprint(m.output, "spectest print\n")
}

func (m *Module) PrintI32(ctx context.Context, value Int32) {
	fmt.Fprintf(m.output, "spectest print_i32 %d\n", int32(value))
}

func (m *Module) PrintI64(ctx context.Context, value Int64) {
	fmt.Fprintf(m.output, "spectest print_i64 %d\n", int64(value))
}

func (m *Module) Close(ctx context.Context) error {
	return nil
}

// The print functions have no results, which the wazergo.F* helpers require.

func printShape0(fn func(*Module, context.Context)) wazergo.Function[*Module] {
	return wazergo.Function[*Module]{
		Func: func(this *Module, ctx context.Context, module api.Module, stack []uint64) {
			fn(this, ctx)
		},
	}
}

func printShape[P Param[P]](fn func(*Module, context.Context, P)) wazergo.Function[*Module] {
	var arg P
	return wazergo.Function[*Module]{
		Params: []Value{arg},
		Func: func(this *Module, ctx context.Context, module api.Module, stack []uint64) {
			var arg P
			fn(this, ctx, arg.LoadValue(module.Memory(), stack))
		},
	}
}
