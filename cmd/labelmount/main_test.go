package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kriansa/labelmount/internal/automount"
	"github.com/kriansa/labelmount/internal/blkid"
)

const fakeBlkidOutput = `/dev/nvme0n1p2: UUID="root-uuid" TYPE="ext4" PARTUUID="p-2"
/dev/sda2: LABEL="SYS" UUID="ABC-123" TYPE="ntfs" PARTUUID="xyz"
/dev/sdx1: BLOCK_SIZE="512"
/dev/sdb1: LABEL="DATA" UUID="1111" TYPE="ext4"
`

const fakeMounts = `/dev/nvme0n1p2 / ext4 rw,relatime 0 0
/dev/sdb1 /media/DATA ext4 rw,relatime 0 0
`

// testEnv writes a fake blkid, a mount table and a config file pointing at
// both, and returns the config path and mount root.
func testEnv(t *testing.T) (cfgPath, mountRoot string) {
	t.Helper()
	dir := t.TempDir()

	blkidPath := filepath.Join(dir, "blkid")
	script := "#!/bin/sh\ncat <<'EOF'\n" + fakeBlkidOutput + "EOF\n"
	require.NoError(t, os.WriteFile(blkidPath, []byte(script), 0755))

	mountsPath := filepath.Join(dir, "mounts")
	require.NoError(t, os.WriteFile(mountsPath, []byte(fakeMounts), 0644))

	mountRoot = filepath.Join(dir, "mnt")
	cfgPath = filepath.Join(dir, "labelmount.toml")
	cfg := fmt.Sprintf("mount_root = %q\nblkid = %q\nmounts_file = %q\n", mountRoot, blkidPath, mountsPath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	return cfgPath, mountRoot
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newCommand(&stdout, &stderr)
	err := cmd.Run(context.Background(), append([]string{"labelmount"}, args...))
	return stdout.String(), stderr.String(), err
}

func TestRoot_RendersAllDevices(t *testing.T) {
	cfgPath, _ := testEnv(t)

	out, _, err := run(t, "-c", cfgPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "/dev/nvme0n1p2")
	assert.Contains(t, lines[2], "SYS")
	assert.Contains(t, lines[3], "DATA")
	assert.NotContains(t, out, "/dev/sdx1")
}

func TestRoot_ListFlag(t *testing.T) {
	cfgPath, _ := testEnv(t)

	out, _, err := run(t, "-c", cfgPath, "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "/dev/sda2")
	assert.NotContains(t, out, "/dev/sdb1")
	assert.NotContains(t, out, "/dev/nvme0n1p2")
}

func TestList_JSON(t *testing.T) {
	cfgPath, _ := testEnv(t)

	out, _, err := run(t, "-c", cfgPath, "list", "--format", "json")
	require.NoError(t, err)

	var devices []blkid.Device
	require.NoError(t, json.Unmarshal([]byte(out), &devices))
	require.Len(t, devices, 3)
	assert.True(t, devices[0].Mounted)
	assert.False(t, devices[1].Mounted)
	assert.True(t, devices[2].Mounted)
}

func TestList_Mountable(t *testing.T) {
	cfgPath, _ := testEnv(t)

	out, _, err := run(t, "-c", cfgPath, "list", "--mountable", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "path: /dev/sda2")
	assert.NotContains(t, out, "/dev/sdb1")
}

func TestList_BadFormat(t *testing.T) {
	cfgPath, _ := testEnv(t)

	_, _, err := run(t, "-c", cfgPath, "list", "--format", "xml")
	assert.Error(t, err)
}

func TestMount_NotFound(t *testing.T) {
	cfgPath, mountRoot := testEnv(t)

	_, _, err := run(t, "-c", cfgPath, "mount", "DATA")
	require.Error(t, err)
	assert.ErrorIs(t, err, automount.ErrDeviceNotFound)
	assert.Equal(t, exitNotFound, exitCode(err))
	assert.NoDirExists(t, filepath.Join(mountRoot, "DATA"))
}

func TestMount_RequiresTarget(t *testing.T) {
	cfgPath, _ := testEnv(t)

	_, _, err := run(t, "-c", cfgPath, "mount")
	require.Error(t, err)
	assert.Equal(t, exitFailure, exitCode(err))

	_, _, err = run(t, "-c", cfgPath, "mount", "--all", "SYS")
	assert.Error(t, err)
}

func TestInvalidConfig(t *testing.T) {
	cfgPath, _ := testEnv(t)

	_, _, err := run(t, "-c", cfgPath, "--backend", "dbus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestVersion(t *testing.T) {
	cfgPath, _ := testEnv(t)

	out, _, err := run(t, "-c", cfgPath, "--version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "labelmount "))
}

func TestVersion_IgnoresBrokenConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "labelmount.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("mount_root = \n"), 0644))

	out, _, err := run(t, "-c", cfgPath, "-V")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "labelmount "))

	_, _, err = run(t, "-c", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}
