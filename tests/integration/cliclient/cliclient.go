//go:build integration

// Package cliclient drives the labelmount binary inside the test VM.
package cliclient

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kriansa/labelmount/tests/integration/vm"
)

// Device mirrors the JSON shape of `labelmount list --format json`.
type Device struct {
	Path     string `json:"path"`
	Label    string `json:"label"`
	UUID     string `json:"uuid"`
	FSType   string `json:"type"`
	PartUUID string `json:"partuuid"`
	Mounted  bool   `json:"mounted"`
}

// Result is the outcome of one CLI invocation.
type Result struct {
	Output   string
	ExitCode int
}

// OK reports whether the command exited with status 0.
func (r Result) OK() bool { return r.ExitCode == 0 }

// Client runs labelmount commands as root over SSH.
type Client struct {
	vm        vm.VM
	binary    string
	mountRoot string
}

// New returns a client for the binary at the given path in the VM.
// Every command is run with --mount-root set to mountRoot.
func New(machine vm.VM, binary, mountRoot string) *Client {
	return &Client{vm: machine, binary: binary, mountRoot: mountRoot}
}

// MountRoot returns the mount root passed to every command.
func (c *Client) MountRoot() string {
	return c.mountRoot
}

// Run executes labelmount with the given arguments. A non-zero exit status is
// reported in the Result; err is set only when the command could not be run.
func (c *Client) Run(args ...string) (Result, error) {
	cmd := fmt.Sprintf("sudo %s --mount-root %s %s", c.binary, c.mountRoot, strings.Join(quote(args), " "))
	output, err := c.vm.Run(cmd)

	code := vm.ExitStatus(err)
	if code < 0 {
		return Result{Output: output}, fmt.Errorf("run %q: %w", cmd, err)
	}
	return Result{Output: output, ExitCode: code}, nil
}

// List returns the devices reported by `list --format json`.
func (c *Client) List(mountable bool) ([]Device, error) {
	args := []string{"list", "--format", "json"}
	if mountable {
		args = append(args, "--mountable")
	}

	res, err := c.Run(args...)
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return nil, fmt.Errorf("list exited with %d: %s", res.ExitCode, res.Output)
	}

	var devices []Device
	if err := json.Unmarshal([]byte(res.Output), &devices); err != nil {
		return nil, fmt.Errorf("decode list output: %w: %s", err, res.Output)
	}
	return devices, nil
}

// FindByLabel returns the first listed device carrying label.
func (c *Client) FindByLabel(label string) (Device, bool, error) {
	devices, err := c.List(false)
	if err != nil {
		return Device{}, false, err
	}
	for _, d := range devices {
		if d.Label == label {
			return d, true, nil
		}
	}
	return Device{}, false, nil
}

// Mount mounts one device by label.
func (c *Client) Mount(label string) (Result, error) {
	return c.Run("mount", label)
}

// MountAll mounts every labeled device that is not mounted yet.
func (c *Client) MountAll() (Result, error) {
	return c.Run("mount", "--all")
}

// Unmount unmounts the device mounted at <mount-root>/<label>.
func (c *Client) Unmount(label string) (Result, error) {
	return c.Run("unmount", label)
}

func quote(args []string) []string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
	}
	return quoted
}
