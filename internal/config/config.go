package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultConfigPath is the default location for the config file
	DefaultConfigPath = "/etc/labelmount.toml"
	// DefaultMountRoot is the directory devices are mounted under, one per label
	DefaultMountRoot = "/mnt"
	// DefaultBackend is the default mount backend
	DefaultBackend = "exec"
	// DefaultBlkid is the device identification utility
	DefaultBlkid = "blkid"
	// DefaultLsblk is the block device listing utility
	DefaultLsblk = "lsblk"
	// DefaultMountsFile is the live mount table
	DefaultMountsFile = "/proc/mounts"
)

// Config holds the tool configuration
type Config struct {
	// MountRoot is the base directory; each device goes to MountRoot/<label>
	MountRoot string `toml:"mount_root"`
	// Backend is the mount backend to use: "exec" or "syscall"
	Backend string `toml:"backend"`
	// Blkid is the blkid binary to run
	Blkid string `toml:"blkid"`
	// Lsblk is the lsblk binary to run
	Lsblk string `toml:"lsblk"`
	// MountsFile is the mount table consulted for mount status
	MountsFile string `toml:"mounts_file"`
	// CommandTimeout bounds each mount/unmount; zero waits forever
	CommandTimeout time.Duration `toml:"command_timeout"`
}

// Load loads configuration from a TOML file
// Returns an empty config if the file doesn't exist
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return cfg, nil
}

// Merge merges CLI flags into the config, with CLI flags taking precedence
// over config file values. Empty CLI values are ignored.
func (c *Config) Merge(mountRoot, backend string) {
	if mountRoot != "" {
		c.MountRoot = mountRoot
	}
	if backend != "" {
		c.Backend = backend
	}
}

// ApplyDefaults applies default values for any unset fields
func (c *Config) ApplyDefaults() {
	if c.MountRoot == "" {
		c.MountRoot = DefaultMountRoot
	}
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	if c.Blkid == "" {
		c.Blkid = DefaultBlkid
	}
	if c.Lsblk == "" {
		c.Lsblk = DefaultLsblk
	}
	if c.MountsFile == "" {
		c.MountsFile = DefaultMountsFile
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !filepath.IsAbs(c.MountRoot) {
		return fmt.Errorf("mount_root must be an absolute path, got %q", c.MountRoot)
	}

	if c.Backend != "exec" && c.Backend != "syscall" {
		return fmt.Errorf("backend must be 'exec' or 'syscall', got %q", c.Backend)
	}

	if c.CommandTimeout < 0 {
		return fmt.Errorf("command_timeout must not be negative, got %s", c.CommandTimeout)
	}

	return nil
}
