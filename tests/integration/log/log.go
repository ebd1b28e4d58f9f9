//go:build integration

package log

import (
	"fmt"
	"os"
)

// Status prints a progress line for the VM harness. go test buffers t.Log
// output until a test ends, so setup progress goes straight to stdout.
func Status(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stdout, "==> "+format+"\n", args...)
}
