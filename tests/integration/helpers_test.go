//go:build integration

package integration

import (
	"fmt"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kriansa/labelmount/tests/integration/cliclient"
)

// target is where labelmount mounts the device with the given label
func target(label string) string {
	return path.Join(mountRoot, label)
}

// cleanupMount registers cleanup that leaves the label unmounted at test end
func cleanupMount(t *testing.T, label string) {
	t.Cleanup(func() {
		_, _ = testVM.Run(fmt.Sprintf("sudo umount %s 2>/dev/null || true", target(label)))
		_, _ = testVM.Run(fmt.Sprintf("sudo rmdir %s 2>/dev/null || true", target(label)))
	})
}

// cleanupAll unmounts every fixture at test end
func cleanupAll(t *testing.T) {
	for _, f := range fixtures {
		cleanupMount(t, f.label)
	}
}

// requireDevice returns the listed device carrying label
func requireDevice(t *testing.T, label string) cliclient.Device {
	t.Helper()
	dev, ok, err := testClient.FindByLabel(label)
	require.NoError(t, err, "list should succeed")
	require.True(t, ok, "device %s should be listed", label)
	return dev
}

// isMountPoint asks the VM whether dir is a mount point
func isMountPoint(t *testing.T, dir string) bool {
	t.Helper()
	output, _ := testVM.Run(fmt.Sprintf("mountpoint -q %s && echo -n yes || echo -n no", dir))
	return strings.TrimSpace(output) == "yes"
}

// mountedSource returns the device mounted at dir, or "" when none is
func mountedSource(t *testing.T, dir string) string {
	t.Helper()
	output, err := testVM.Run(fmt.Sprintf("findmnt -n -o SOURCE %s", dir))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(output)
}
