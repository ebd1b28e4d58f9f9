// Package automount mounts labeled block devices at <mount root>/<label>.
package automount

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kriansa/labelmount/internal/blkid"
	"github.com/kriansa/labelmount/internal/log"
	"github.com/kriansa/labelmount/internal/mount"
	"github.com/kriansa/labelmount/internal/validation"
)

var (
	// ErrDeviceNotFound means no unmounted device carries the requested label.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrMountFailed means the mount itself was attempted and failed.
	ErrMountFailed = errors.New("mount failed")
	// ErrNotMounted means nothing is mounted at the label's target.
	ErrNotMounted = errors.New("not mounted")
	// ErrUnmountFailed means the unmount was attempted and failed.
	ErrUnmountFailed = errors.New("unmount failed")
)

// Result describes what happened to one device.
type Result struct {
	Device  blkid.Device
	Target  string
	Outcome mount.Outcome
	// Err is nil when the device was mounted.
	Err error
}

// Service mounts devices from a registry. Devices are handled one at a time.
type Service struct {
	mountRoot    string
	mounter      mount.Mounter
	timeout      time.Duration
	isMountPoint func(path string) (bool, error)
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout bounds every mount and unmount. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

// WithMountPointCheck replaces the mount point probe (for testing)
func WithMountPointCheck(fn func(path string) (bool, error)) Option {
	return func(s *Service) {
		s.isMountPoint = fn
	}
}

// NewService creates a Service mounting under mountRoot.
func NewService(mountRoot string, mounter mount.Mounter, opts ...Option) *Service {
	s := &Service{
		mountRoot:    mountRoot,
		mounter:      mounter,
		isMountPoint: mount.IsMountPoint,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Target returns the mount point for label.
func (s *Service) Target(label string) string {
	return filepath.Join(s.mountRoot, label)
}

// MountAll mounts every mountable device in registry order. A failure is
// recorded in that device's Result and the next device is still attempted.
func (s *Service) MountAll(ctx context.Context, reg *blkid.Registry) []Result {
	devices := reg.Mountable()
	log.Info("mounting all labeled devices", "count", len(devices))

	results := make([]Result, 0, len(devices))
	for _, dev := range devices {
		res := s.mountDevice(ctx, dev)
		if res.Err != nil {
			log.Warn("device not mounted, continuing", "device", dev.Path, "label", dev.Label, "error", res.Err)
		}
		results = append(results, res)
	}
	return results
}

// MountLabel mounts the device carrying label. It returns ErrDeviceNotFound
// when no unmounted device has that label, and ErrMountFailed when the mount
// was attempted but failed.
func (s *Service) MountLabel(ctx context.Context, reg *blkid.Registry, label string) (Result, error) {
	log.Info("mounting device", "label", label)

	dev, ok := reg.FindByLabel(label)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, label)
	}

	res := s.mountDevice(ctx, dev)
	return res, res.Err
}

// Unmount unmounts whatever is mounted at the target of label and removes the
// then empty directory.
func (s *Service) Unmount(ctx context.Context, label string) (Result, error) {
	if err := validation.ValidateLabel(label); err != nil {
		return Result{}, err
	}

	target := s.Target(label)
	res := Result{Target: target}

	mounted, err := s.isMountPoint(target)
	if err != nil {
		return res, fmt.Errorf("check mount status: %w", err)
	}
	if !mounted {
		return res, fmt.Errorf("%w: %s", ErrNotMounted, target)
	}

	res.Outcome = s.withTimeout(ctx, func(ctx context.Context) mount.Outcome {
		return s.mounter.Unmount(ctx, target)
	})
	if !res.Outcome.Success {
		res.Err = fmt.Errorf("%w: %s: %s", ErrUnmountFailed, target, strings.TrimSpace(res.Outcome.Stderr))
		return res, res.Err
	}

	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to remove mountpoint directory", "path", target, "error", err)
	}

	log.Info("device unmounted", "label", label, "target", target)
	return res, nil
}

func (s *Service) mountDevice(ctx context.Context, dev blkid.Device) Result {
	res := Result{Device: dev}

	if err := validation.ValidateLabel(dev.Label); err != nil {
		res.Err = fmt.Errorf("device %s: %w", dev.Path, err)
		return res
	}
	res.Target = s.Target(dev.Label)

	if err := s.prepareMountPoint(res.Target); err != nil {
		res.Err = fmt.Errorf("prepare mount point: %w", err)
		return res
	}

	res.Outcome = s.withTimeout(ctx, func(ctx context.Context) mount.Outcome {
		return s.mounter.Mount(ctx, dev, res.Target)
	})
	if !res.Outcome.Success {
		res.Err = fmt.Errorf("%w: %s to %s: %s", ErrMountFailed, dev.Path, res.Target, strings.TrimSpace(res.Outcome.Stderr))
		return res
	}

	log.Info("device mounted", "device", dev.Path, "label", dev.Label, "target", res.Target, "type", dev.FSType)
	return res
}

func (s *Service) withTimeout(ctx context.Context, fn func(context.Context) mount.Outcome) mount.Outcome {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return fn(ctx)
}

// prepareMountPoint creates the mount point directory if it is missing. An
// existing directory is reused unless something is already mounted on it.
func (s *Service) prepareMountPoint(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("mount point %s exists but is not a directory", path)
		}

		mounted, err := s.isMountPoint(path)
		if err != nil {
			return fmt.Errorf("check mount point: %w", err)
		}
		if mounted {
			return fmt.Errorf("mount point %s is already in use", path)
		}
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat mount point: %w", err)
	}

	log.Info("creating mount point", "path", path)
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("create mount point: %w", err)
	}

	return nil
}
