package version

import (
	"fmt"
	"runtime"
)

// Name is the program name reported by --version
const Name = "labelmount"

// Set via ldflags at build time
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func String() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s, go: %s)",
		Name, Version, Commit, BuildTime, runtime.Version())
}
