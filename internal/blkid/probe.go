package blkid

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/kriansa/labelmount/internal/log"
)

// blkid exits with 2 when it finds no identifiable devices.
const exitNothingFound = 2

var execCommand = exec.CommandContext

// Probe runs `<binary> -d` and returns its standard output. A run that finds
// nothing yields empty output rather than an error.
func Probe(ctx context.Context, binary string) (string, error) {
	log.Debug("probing block devices", "command", binary)

	var stdout, stderr bytes.Buffer
	cmd := execCommand(ctx, binary, "-d")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == exitNothingFound {
			log.Info("blkid found no devices")
			return "", nil
		}
		return "", fmt.Errorf("%s -d: %w (stderr: %q)", binary, err, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}
