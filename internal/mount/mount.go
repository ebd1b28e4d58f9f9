package mount

import (
	"context"
	"fmt"

	"github.com/kriansa/labelmount/internal/blkid"
)

// Mounter mounts and unmounts devices. Implementations never create or check
// the target directory; callers prepare it first.
type Mounter interface {
	// Mount mounts dev read-write at target
	Mount(ctx context.Context, dev blkid.Device, target string) Outcome
	// Unmount unmounts whatever is mounted at target
	Unmount(ctx context.Context, target string) Outcome
}

// Outcome is the result of a single mount or unmount. A process that could
// not be started and one that exited non-zero are both reported as
// Success == false.
type Outcome struct {
	Success bool
	Stdout  string
	Stderr  string
}

// Backends accepted by New.
const (
	BackendExec    = "exec"
	BackendSyscall = "syscall"
)

// New returns the Mounter for backend.
func New(backend string) (Mounter, error) {
	switch backend {
	case BackendExec:
		return NewExecMounter(), nil
	case BackendSyscall:
		return NewSyscallMounter(), nil
	default:
		return nil, fmt.Errorf("unknown backend: %s (use '%s' or '%s')", backend, BackendExec, BackendSyscall)
	}
}

// fsTypeOverride returns the -t argument for dev, if any. ntfs is the only
// type passed explicitly; mount(8) detects everything else.
func fsTypeOverride(dev blkid.Device) string {
	if dev.FSType == "ntfs" {
		return "ntfs"
	}
	return ""
}
