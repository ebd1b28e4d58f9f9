package mount

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/moby/sys/mountinfo"
)

// IsMountPoint reports whether path is currently a mount point. A path that
// does not exist is not a mount point.
func IsMountPoint(path string) (bool, error) {
	mounted, err := mountinfo.Mounted(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("check mount point %s: %w", path, err)
	}
	return mounted, nil
}
