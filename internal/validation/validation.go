package validation

import (
	"fmt"
	"strings"
)

// MaxLabelLength is NAME_MAX, the longest single path component.
const MaxLabelLength = 255

// ValidateLabel checks that a filesystem label can be used as a single
// directory name under the mount root:
// - not empty
// - not "." or ".."
// - no path separator or NUL byte
func ValidateLabel(label string) error {
	if label == "" {
		return fmt.Errorf("label must not be empty")
	}

	if len(label) > MaxLabelLength {
		return fmt.Errorf("label must be at most %d bytes", MaxLabelLength)
	}

	if label == "." || label == ".." {
		return fmt.Errorf("label %q is not a valid directory name", label)
	}

	if strings.ContainsAny(label, "/\x00") {
		return fmt.Errorf("label %q must not contain '/' or NUL characters", label)
	}

	return nil
}
