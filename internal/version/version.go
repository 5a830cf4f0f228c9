// Package version holds build metadata for the streamfetch binary.
// Release builds overwrite the defaults with -ldflags, for example:
//
//	-X github.com/arjunmehra/streamfetch/internal/version.Version=v1.2.0
package version

import "runtime"

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// GoVersion returns the Go runtime version string.
func GoVersion() string { return runtime.Version() }
