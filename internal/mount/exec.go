package mount

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/kriansa/labelmount/internal/blkid"
	"github.com/kriansa/labelmount/internal/log"
)

// ExecMounter implements Mounter by running mount(8) and umount(8)
type ExecMounter struct {
	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewExecMounter creates a mounter that shells out to the system utilities
func NewExecMounter() *ExecMounter {
	return &ExecMounter{
		execCommand: exec.CommandContext,
	}
}

// Mount runs `mount -o rw [-t ntfs] <device> <target>`
func (m *ExecMounter) Mount(ctx context.Context, dev blkid.Device, target string) Outcome {
	args := []string{"-o", "rw"}
	if fsType := fsTypeOverride(dev); fsType != "" {
		args = append(args, "-t", fsType)
	}
	args = append(args, dev.Path, target)

	log.Debug("mounting device", "device", dev.Path, "target", target, "args", args)
	return m.run(ctx, "mount", args...)
}

// Unmount runs `umount <target>`
func (m *ExecMounter) Unmount(ctx context.Context, target string) Outcome {
	log.Debug("unmounting", "target", target)
	return m.run(ctx, "umount", target)
}

func (m *ExecMounter) run(ctx context.Context, name string, args ...string) Outcome {
	var stdout, stderr bytes.Buffer
	cmd := m.execCommand(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Outcome{
		Success: err == nil,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}
	if err != nil {
		// Launch failures and timeouts leave stderr empty; surface the error text.
		if strings.TrimSpace(out.Stderr) == "" {
			out.Stderr = err.Error()
		}
		log.Debug("command failed", "command", name, "args", args, "error", err)
	}
	return out
}
