// Command wasiaot runs WebAssembly programs against the WASI preview 1 host
// layer, with the guest executed by wazero.
package main

import (
	"errors"
	"fmt"
	"os"
)

var version = "devel"

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// exitError carries the exit code of the guest out of the command.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
