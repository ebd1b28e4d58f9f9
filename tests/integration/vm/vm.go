//go:build integration

package vm

import (
	"context"
	"time"
)

// VM is a disposable machine the binary under test runs in. Block devices and
// mounts are real inside it, so the host is never touched.
type VM interface {
	// Run executes cmd through a shell and returns combined output
	Run(cmd string) (string, error)
	// RunWithTimeout is Run bounded by timeout
	RunWithTimeout(ctx context.Context, cmd string, timeout time.Duration) (string, error)
	// CopyFile uploads an executable to remotePath
	CopyFile(localPath, remotePath string) error
	Stop()
	IsRunning() bool
	WaitForSSH(ctx context.Context) error
}
