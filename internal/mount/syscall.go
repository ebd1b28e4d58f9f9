package mount

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/kriansa/labelmount/internal/blkid"
	"github.com/kriansa/labelmount/internal/log"
)

// SyscallMounter implements Mounter using mount(2) and umount(2). The kernel
// needs an explicit filesystem type, so the blkid TYPE is always passed.
type SyscallMounter struct {
	mount   func(source, target, fstype string, flags uintptr, data string) error
	unmount func(target string, flags int) error
}

// NewSyscallMounter creates a new syscall-based mounter
func NewSyscallMounter() *SyscallMounter {
	return &SyscallMounter{
		mount:   unix.Mount,
		unmount: unix.Unmount,
	}
}

// Mount mounts dev read-write at target
func (m *SyscallMounter) Mount(ctx context.Context, dev blkid.Device, target string) Outcome {
	if err := ctx.Err(); err != nil {
		return Outcome{Stderr: err.Error()}
	}
	if dev.FSType == "" {
		return Outcome{Stderr: fmt.Sprintf("mount %s: unknown filesystem type", dev.Path)}
	}

	log.Debug("mounting filesystem", "source", dev.Path, "target", target, "type", dev.FSType)

	if err := m.mount(dev.Path, target, dev.FSType, 0, ""); err != nil {
		return Outcome{Stderr: fmt.Sprintf("mount %s to %s: %v", dev.Path, target, err)}
	}

	log.Debug("mounted successfully", "source", dev.Path, "target", target)
	return Outcome{Success: true}
}

// Unmount unmounts the target directory
func (m *SyscallMounter) Unmount(ctx context.Context, target string) Outcome {
	if err := ctx.Err(); err != nil {
		return Outcome{Stderr: err.Error()}
	}

	log.Debug("unmounting", "target", target)

	if err := m.unmount(target, 0); err != nil {
		return Outcome{Stderr: fmt.Sprintf("unmount %s: %v", target, err)}
	}

	log.Debug("unmounted successfully", "target", target)
	return Outcome{Success: true}
}
