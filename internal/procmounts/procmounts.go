package procmounts

// DefaultPath is the kernel's live mount table.
const DefaultPath = "/proc/mounts"

// Entry represents an entry in /proc/mounts. Only Device is guaranteed to be
// set; the remaining fields are empty when a line is truncated.
type Entry struct {
	Device     string
	MountPoint string
	FSType     string
	Options    string
}
