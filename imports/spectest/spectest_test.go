package spectest_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stealthrocket/wasi-aot/imports/spectest"
	"github.com/stealthrocket/wasi-aot/testwasi"
	"github.com/stealthrocket/wazergo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
)

func TestPrint(t *testing.T) {
	ctx := context.Background()
	runtime := wazero.NewRuntime(ctx)
	defer runtime.Close(ctx)

	var output bytes.Buffer
	ctx = wazergo.WithModuleInstance(ctx,
		wazergo.MustInstantiate(ctx, runtime, spectest.HostModule, spectest.WithOutput(&output)),
	)

	program := &testwasi.Program{
		Imports: []testwasi.Import{
			{Module: "spectest", Name: "print"},
			{Module: "spectest", Name: "print_i32", Params: []byte{testwasi.I32}},
		},
		Code: testwasi.Code(
			testwasi.Call(0),
			testwasi.I32Const(spectest.GlobalI32), testwasi.Call(1),
			testwasi.I32Const(-7), testwasi.Call(1),
		),
	}

	mod, err := runtime.Instantiate(ctx, program.Bytes())
	require.NoError(t, err)
	require.NoError(t, mod.Close(ctx))

	assert.Equal(t, "spectest print\nspectest print_i32 42\nspectest print_i32 -7\n", output.String())
}
