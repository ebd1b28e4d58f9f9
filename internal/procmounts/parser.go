package procmounts

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kriansa/labelmount/internal/log"
)

// Parse reads the mount table at path and returns all of its entries
func Parse(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	mounts, err := ParseReader(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return mounts, nil
}

// ParseReader parses mount table text in /proc/mounts format: whitespace
// delimited fields, device first. Blank lines are skipped.
func ParseReader(r io.Reader) ([]Entry, error) {
	var mounts []Entry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		entry := Entry{Device: unescapeField(fields[0])}
		if len(fields) > 1 {
			entry.MountPoint = unescapeField(fields[1])
		}
		if len(fields) > 2 {
			entry.FSType = fields[2]
		}
		if len(fields) > 3 {
			entry.Options = fields[3]
		}
		mounts = append(mounts, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return mounts, nil
}

// Checker answers whether a device node currently appears in the mount table.
// The table is re-read on every call.
type Checker struct {
	path string
}

// NewChecker returns a Checker reading the mount table at path. An empty
// path selects DefaultPath.
func NewChecker(path string) *Checker {
	if path == "" {
		path = DefaultPath
	}
	return &Checker{path: path}
}

// IsMounted reports whether any mount entry's device field is exactly
// devicePath. Matching on the whole first field keeps /dev/sda1 from matching
// a /dev/sda10 entry.
func (c *Checker) IsMounted(devicePath string) (bool, error) {
	mounts, err := Parse(c.path)
	if err != nil {
		return false, err
	}

	for _, m := range mounts {
		if m.Device == devicePath {
			log.Debug("device found in mount table", "device", devicePath, "mountpoint", m.MountPoint)
			return true, nil
		}
	}

	return false, nil
}

// unescapeField unescapes special characters in mount fields
// /proc/mounts escapes spaces as \040, tabs as \011, etc.
func unescapeField(s string) string {
	return fieldUnescaper.Replace(s)
}

var fieldUnescaper = strings.NewReplacer(
	`\040`, " ",
	`\011`, "\t",
	`\012`, "\n",
	`\134`, `\`,
)
