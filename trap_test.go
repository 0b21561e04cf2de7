package wasi_test

import (
	"errors"
	"testing"

	"github.com/stealthrocket/wasi-aot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/sys"
)

func TestTrapExitCodes(t *testing.T) {
	tests := []struct {
		kind     wasi.TrapKind
		exitCode int
	}{
		{wasi.CallIndirectFail, 255},
		{wasi.Unreachable, 254},
		{wasi.IntegerDivideByZeroOrOverflow, 253},
		{wasi.InvalidFloatOperation, 252},
		{wasi.OutOfBoundsMemoryAccess, 251},
		{wasi.IOVecOverflow, 251},
		{wasi.UnmappedErrno, 251},
	}

	for _, test := range tests {
		t.Run(test.kind.String(), func(t *testing.T) {
			exitCode, err := wasi.Run(func() { wasi.Raise(test.kind, "test") })
			assert.Equal(t, test.exitCode, exitCode)

			var trap wasi.Trap
			require.True(t, errors.As(err, &trap))
			assert.Equal(t, test.kind, trap.Kind)
			assert.Equal(t, "test", trap.Msg)
		})
	}
}

func TestRunNormalReturn(t *testing.T) {
	exitCode, err := wasi.Run(func() {})
	assert.Zero(t, exitCode)
	assert.NoError(t, err)
}

func TestRunExitError(t *testing.T) {
	exitCode, err := wasi.Run(func() { panic(sys.NewExitError(42)) })
	assert.Equal(t, 42, exitCode)
	assert.NoError(t, err)
}

func TestRunRuntimeError(t *testing.T) {
	exitCode, err := wasi.Run(func() {
		var b []byte
		i := 10
		_ = b[i]
	})
	assert.Equal(t, 251, exitCode)

	var trap wasi.Trap
	require.ErrorAs(t, err, &trap)
	assert.Equal(t, wasi.OutOfBoundsMemoryAccess, trap.Kind)
}

func TestRecoverRepanics(t *testing.T) {
	assert.PanicsWithValue(t, "not a trap", func() {
		defer func() { wasi.Recover(recover()) }()
		panic("not a trap")
	})
}

func TestTrapError(t *testing.T) {
	trap := wasi.Trap{Kind: wasi.Unreachable}
	assert.Equal(t, "trap: unreachable", trap.Error())

	trap.Msg = "in function f"
	assert.Equal(t, "trap: unreachable: in function f", trap.Error())
}
