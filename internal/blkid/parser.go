package blkid

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kriansa/labelmount/internal/log"
)

// MountChecker reports whether a device node is in the live mount table.
type MountChecker interface {
	IsMounted(devicePath string) (bool, error)
}

// ParseError is returned when a line is not a usable device record.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse blkid line %q: %s", e.Line, e.Reason)
}

// Example line:
// /dev/sda2: LABEL="DATA" BLOCK_SIZE="512" UUID="F4C41C2EC41BF21A" TYPE="ntfs" PARTUUID="15565c7f-01"
var (
	// The device path runs up to the first colon followed by whitespace, so
	// by-path names such as pci-0000:00:1f.2 stay intact.
	pathPattern = regexp.MustCompile(`^(\S+?):(?:\s|$)`)

	labelPattern    = attrPattern("LABEL")
	uuidPattern     = attrPattern("UUID")
	typePattern     = attrPattern("TYPE")
	partUUIDPattern = attrPattern("PARTUUID")

	escapedChar = regexp.MustCompile(`\\(.)`)
)

// attrPattern matches KEY="value" where KEY starts a token. PARTUUID therefore
// never satisfies UUID, and PARTLABEL never satisfies LABEL. Values may hold
// backslash escaped quotes.
func attrPattern(key string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|\s)` + key + `="((?:[^"\\]|\\.)*)"`)
}

// Parser builds Device records from blkid output lines.
type Parser struct {
	mounts MountChecker
}

// NewParser returns a Parser that stamps mount status using mounts.
func NewParser(mounts MountChecker) *Parser {
	return &Parser{mounts: mounts}
}

// ParseLine parses a single line of `blkid -d` output. UUID and TYPE are
// required; LABEL and PARTUUID default to the empty string. On success the
// device's mount status is looked up once and frozen into the record.
//
// A line that does not match returns *ParseError. A mount table failure is
// returned as is.
func (p *Parser) ParseLine(line string) (Device, error) {
	line = strings.TrimRight(line, "\r")

	m := pathPattern.FindStringSubmatch(line)
	if m == nil {
		return Device{}, &ParseError{Line: line, Reason: "missing device path"}
	}
	rest := line[len(m[0]):]

	uuid, ok := lookupAttr(uuidPattern, rest)
	if !ok {
		return Device{}, &ParseError{Line: line, Reason: "missing UUID"}
	}
	fsType, ok := lookupAttr(typePattern, rest)
	if !ok {
		return Device{}, &ParseError{Line: line, Reason: "missing TYPE"}
	}
	label, _ := lookupAttr(labelPattern, rest)
	partUUID, _ := lookupAttr(partUUIDPattern, rest)

	dev := Device{
		Path:     m[1],
		Label:    label,
		UUID:     uuid,
		FSType:   fsType,
		PartUUID: partUUID,
	}

	mounted, err := p.mounts.IsMounted(dev.Path)
	if err != nil {
		return Device{}, fmt.Errorf("check mount status of %s: %w", dev.Path, err)
	}
	dev.Mounted = mounted

	log.Debug("parsed device", "path", dev.Path, "label", dev.Label, "type", dev.FSType, "mounted", dev.Mounted)
	return dev, nil
}

func lookupAttr(pattern *regexp.Regexp, s string) (string, bool) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return escapedChar.ReplaceAllString(m[1], "$1"), true
}
