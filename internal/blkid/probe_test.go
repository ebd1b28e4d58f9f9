package blkid

import (
	"context"
	"os"
	"os/exec"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCommand re-executes the test binary as TestHelperProcess
func fakeCommand(stdout, stderr string, exitCode int) func(context.Context, string, ...string) *exec.Cmd {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = []string{
			"GO_WANT_HELPER_PROCESS=1",
			"STDOUT=" + stdout,
			"STDERR=" + stderr,
			"EXIT_CODE=" + strconv.Itoa(exitCode),
		}
		return cmd
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	_, _ = os.Stdout.WriteString(os.Getenv("STDOUT"))
	_, _ = os.Stderr.WriteString(os.Getenv("STDERR"))

	exitCode, _ := strconv.Atoi(os.Getenv("EXIT_CODE"))
	os.Exit(exitCode)
}

func withCommand(t *testing.T, fn func(context.Context, string, ...string) *exec.Cmd) {
	t.Helper()
	orig := execCommand
	execCommand = fn
	t.Cleanup(func() { execCommand = orig })
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name     string
		stdout   string
		stderr   string
		exitCode int
		want     string
		wantErr  bool
	}{
		{
			name:   "devices found",
			stdout: sampleOutput,
			want:   sampleOutput,
		},
		{
			name:     "nothing found",
			exitCode: 2,
			want:     "",
		},
		{
			name:     "failure",
			stderr:   "blkid: permission denied",
			exitCode: 4,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withCommand(t, fakeCommand(tt.stdout, tt.stderr, tt.exitCode))

			got, err := Probe(context.Background(), "blkid")
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.stderr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProbe_MissingBinary(t *testing.T) {
	_, err := Probe(context.Background(), "/nonexistent/blkid")
	assert.Error(t, err)
}
