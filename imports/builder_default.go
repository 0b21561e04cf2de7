//go:build !unix

package imports

import (
	"context"
	"fmt"
	"runtime"

	"github.com/stealthrocket/wasi-aot/abi"
	"github.com/tetratelabs/wazero"
)

func (b *Builder) Instantiate(ctx context.Context, _ wazero.Runtime) (context.Context, *abi.Instance, error) {
	return ctx, nil, fmt.Errorf("wasi-aot is not available on GOOS=%s", runtime.GOOS)
}
