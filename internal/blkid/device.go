// Package blkid turns `blkid -d` output into a registry of labeled block
// devices and decides which of them are eligible for mounting.
package blkid

import "fmt"

// Device is one block device or partition as reported by blkid.
type Device struct {
	// Path is the device node, e.g. /dev/sda2. Never empty.
	Path string `json:"path" yaml:"path"`
	// Label is the filesystem label. Empty when unset.
	Label string `json:"label" yaml:"label"`
	// UUID is the filesystem UUID. Empty when unset.
	UUID string `json:"uuid" yaml:"uuid"`
	// FSType is the filesystem type, e.g. ext4 or ntfs. Empty when unset.
	FSType string `json:"type" yaml:"type"`
	// PartUUID is the partition table entry UUID. Empty when unset.
	PartUUID string `json:"partuuid" yaml:"partuuid"`
	// Mounted reflects the mount table at the moment the line was parsed.
	// It is not refreshed afterwards.
	Mounted bool `json:"mounted" yaml:"mounted"`
}

// Mountable reports whether the device has a label and was not mounted when
// it was parsed.
func (d Device) Mountable() bool {
	return d.Label != "" && !d.Mounted
}

func (d Device) String() string {
	return fmt.Sprintf("%s (label=%q, type=%s)", d.Path, d.Label, d.FSType)
}
