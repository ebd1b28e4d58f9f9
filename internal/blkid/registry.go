package blkid

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/kriansa/labelmount/internal/log"
)

// Registry is the ordered set of devices parsed from one blkid run. It is
// read-only once built.
type Registry struct {
	devices []Device
}

// Build parses every non-empty line of output, whatever its length. Lines
// that are not usable device records are dropped and the rest keep their
// input order. Failing to read the mount table aborts the build.
func Build(output string, mounts MountChecker) (*Registry, error) {
	parser := NewParser(mounts)
	reg := &Registry{}

	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		dev, err := parser.ParseLine(line)
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				log.Debug("skipping blkid line", "line", line, "reason", perr.Reason)
				continue
			}
			return nil, err
		}

		reg.devices = append(reg.devices, dev)
	}

	log.Debug("built device registry", "devices", len(reg.devices))
	return reg, nil
}

// Devices returns every record in registry order, mounted ones included.
func (r *Registry) Devices() []Device {
	return append([]Device(nil), r.devices...)
}

// Len returns the number of records.
func (r *Registry) Len() int {
	return len(r.devices)
}

// Mountable returns, in registry order, every device with a label that was
// not mounted at parse time.
func (r *Registry) Mountable() []Device {
	var res []Device
	for _, d := range r.devices {
		if d.Mountable() {
			res = append(res, d)
		}
	}
	return res
}

// FindByLabel returns the first mountable device whose label is exactly
// label. A device carrying the label that is already mounted is not
// returned.
func (r *Registry) FindByLabel(label string) (Device, bool) {
	if label == "" {
		return Device{}, false
	}
	for _, d := range r.devices {
		if d.Label == label && d.Mountable() {
			return d, true
		}
	}
	return Device{}, false
}

// RenderTable renders all records, mounted ones included.
func (r *Registry) RenderTable() string {
	return RenderTable(r.devices)
}

// RenderTable renders devices as a table with a fixed header row.
func RenderTable(devices []Device) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "NAME\tLABEL\tUUID\tTYPE\tPARTUUID\tMOUNTED")
	for _, d := range devices {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\n", d.Path, d.Label, d.UUID, d.FSType, d.PartUUID, d.Mounted)
	}
	_ = w.Flush()

	return sb.String()
}
