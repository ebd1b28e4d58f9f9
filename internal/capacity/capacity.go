// Package capacity converts the human readable sizes printed by lsblk
// ("465.8G", "512M", "100") into byte counts.
package capacity

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
)

const (
	kib = 1024
	mib = 1024 * kib
	gib = 1024 * mib
	tib = 1024 * gib

	// maxBytes is 2^64, the first value that does not fit in a uint64.
	maxBytes = float64(1 << 64)
)

// ErrEmpty is returned when Parse is given an empty string.
var ErrEmpty = errors.New("empty capacity")

// Parse converts a size with an optional uppercase K, M, G or T suffix into
// bytes. Suffixes are binary multiples. Fractional bytes are truncated.
func Parse(s string) (uint64, error) {
	if s == "" {
		return 0, ErrEmpty
	}

	numPart := s
	multiplier := 1.0
	switch s[len(s)-1] {
	case 'T':
		multiplier = tib
	case 'G':
		multiplier = gib
	case 'M':
		multiplier = mib
	case 'K':
		multiplier = kib
	}
	if multiplier != 1 {
		numPart = s[:len(s)-1]
	}

	value, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("parse capacity %q: %w", s, err)
	}
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("parse capacity %q: value out of range", s)
	}

	bytes := value * multiplier
	if bytes >= maxBytes {
		return 0, fmt.Errorf("parse capacity %q: value out of range", s)
	}

	return uint64(bytes), nil
}

// Format renders bytes with IEC units, e.g. "465.8 GiB".
func Format(bytes uint64) string {
	return humanize.IBytes(bytes)
}
