package lsblk

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/kriansa/labelmount/internal/log"
)

// Columns requested from lsblk. They map onto the fields of Node.
const columns = "NAME,MAJ:MIN,SIZE,RO,TYPE,MOUNTPOINTS"

var execCommand = exec.CommandContext

// Probe runs lsblk in JSON mode and decodes its output.
func Probe(ctx context.Context, binary string) (*Tree, error) {
	log.Debug("probing block device topology", "command", binary)

	var stdout, stderr bytes.Buffer
	cmd := execCommand(ctx, binary, "-J", "-o", columns)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s -J: %w (stderr: %q)", binary, err, strings.TrimSpace(stderr.String()))
	}

	return FromJSON(stdout.Bytes())
}
