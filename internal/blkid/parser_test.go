package blkid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMounts is an in-memory mount table keyed by device path
type fakeMounts struct {
	mounted map[string]bool
	err     error
	calls   int
}

func (f *fakeMounts) IsMounted(devicePath string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.mounted[devicePath], nil
}

func noMounts() *fakeMounts {
	return &fakeMounts{mounted: map[string]bool{}}
}

func TestParser_ParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Device
	}{
		{
			name: "all fields",
			line: `/dev/sda2: LABEL="SYS" UUID="ABC-123" TYPE="ntfs" PARTUUID="xyz"`,
			want: Device{Path: "/dev/sda2", Label: "SYS", UUID: "ABC-123", FSType: "ntfs", PartUUID: "xyz"},
		},
		{
			name: "mapper device without label or partuuid",
			line: `/dev/mapper/openeuler-swap: UUID="75d304ca-20a0-47d2-bf29-da460789c643" BLOCK_SIZE="512  TYPE="swap"`,
			want: Device{Path: "/dev/mapper/openeuler-swap", UUID: "75d304ca-20a0-47d2-bf29-da460789c643", FSType: "swap"},
		},
		{
			name: "partuuid without label",
			line: `/dev/nvme0n1p3: UUID="SB2XCA-H6oF-tZVR-TYkd-wVBC-Hee6-t4QUg1" TYPE="LVM2_member" PARTUUID="67426631-3f86-4de0-9d16-ca5fbd540604"`,
			want: Device{
				Path:     "/dev/nvme0n1p3",
				UUID:     "SB2XCA-H6oF-tZVR-TYkd-wVBC-Hee6-t4QUg1",
				FSType:   "LVM2_member",
				PartUUID: "67426631-3f86-4de0-9d16-ca5fbd540604",
			},
		},
		{
			name: "non ascii label with partlabel",
			line: `/dev/sda2: LABEL="系统" BLOCK_SIZE="512" UUID="F4C41C2EC41BF21A" TYPE="ntfs" PARTLABEL="Basic data partition" PARTUUID="15565c7f-ea2b-41ed-b159-fe00ad7991f0"`,
			want: Device{
				Path:     "/dev/sda2",
				Label:    "系统",
				UUID:     "F4C41C2EC41BF21A",
				FSType:   "ntfs",
				PartUUID: "15565c7f-ea2b-41ed-b159-fe00ad7991f0",
			},
		},
		{
			name: "fields in any order",
			line: `/dev/sdb1: PARTUUID="p-1" TYPE="ext4" LABEL="backup" UUID="u-1"`,
			want: Device{Path: "/dev/sdb1", Label: "backup", UUID: "u-1", FSType: "ext4", PartUUID: "p-1"},
		},
		{
			name: "partlabel is not a label",
			line: `/dev/sdb2: UUID="u-2" TYPE="vfat" PARTLABEL="EFI"`,
			want: Device{Path: "/dev/sdb2", UUID: "u-2", FSType: "vfat"},
		},
		{
			name: "uuid_sub does not shadow uuid",
			line: `/dev/sdc1: UUID_SUB="sub" UUID="u-3" TYPE="btrfs"`,
			want: Device{Path: "/dev/sdc1", UUID: "u-3", FSType: "btrfs"},
		},
		{
			name: "escaped quote in label",
			line: `/dev/sdd1: LABEL="my \"disk\"" UUID="u-4" TYPE="ext4"`,
			want: Device{Path: "/dev/sdd1", Label: `my "disk"`, UUID: "u-4", FSType: "ext4"},
		},
		{
			name: "colon inside device path",
			line: `/dev/disk/by-path/pci-0000:00:1f.2-ata-1-part1: UUID="u-5" TYPE="xfs"`,
			want: Device{Path: "/dev/disk/by-path/pci-0000:00:1f.2-ata-1-part1", UUID: "u-5", FSType: "xfs"},
		},
		{
			name: "empty values are kept",
			line: `/dev/sde1: LABEL="" UUID="" TYPE="ext4"`,
			want: Device{Path: "/dev/sde1", FSType: "ext4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(noMounts())
			got, err := p.ParseLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParser_ParseLine_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		reason string
	}{
		{"no uuid and no type", `/dev/sdx1: BLOCK_SIZE="512"`, "missing UUID"},
		{"no type", `/dev/sdx2: UUID="abc"`, "missing TYPE"},
		{"no uuid", `/dev/sdx3: TYPE="ext4" PARTUUID="p"`, "missing UUID"},
		{"no device path", `UUID="abc" TYPE="ext4"`, "missing device path"},
		{"empty path", `: UUID="abc" TYPE="ext4"`, "missing device path"},
		{"empty line", ``, "missing device path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mounts := noMounts()
			_, err := NewParser(mounts).ParseLine(tt.line)
			require.Error(t, err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "expected *ParseError, got %T", err)
			assert.Equal(t, tt.line, perr.Line)
			assert.Equal(t, tt.reason, perr.Reason)
			assert.Zero(t, mounts.calls, "mount table must not be consulted for invalid lines")
		})
	}
}

func TestParser_ParseLine_StampsMountStatus(t *testing.T) {
	line := `/dev/sda2: LABEL="SYS" UUID="ABC-123" TYPE="ntfs" PARTUUID="xyz"`

	dev, err := NewParser(noMounts()).ParseLine(line)
	require.NoError(t, err)
	assert.False(t, dev.Mounted)

	mounts := &fakeMounts{mounted: map[string]bool{"/dev/sda2": true}}
	dev, err = NewParser(mounts).ParseLine(line)
	require.NoError(t, err)
	assert.True(t, dev.Mounted)
	assert.Equal(t, 1, mounts.calls)
}

func TestParser_ParseLine_MountTableError(t *testing.T) {
	ioErr := errors.New("permission denied")
	mounts := &fakeMounts{err: ioErr}

	_, err := NewParser(mounts).ParseLine(`/dev/sda1: UUID="u" TYPE="ext4"`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ioErr)

	var perr *ParseError
	assert.False(t, errors.As(err, &perr))
}
