package pagou

import (
	"fmt"
	"runtime"
)

var (
	// Version is the SDK semantic version (injectable via -ldflags).
	Version = "1.2.0"
	// GitCommit is the git SHA (injectable via -ldflags).
	GitCommit = "unknown"
	// GoVersion records the Go toolchain version used.
	GoVersion = runtime.Version()
)

// defaultUserAgent builds the User-Agent header sent when the caller does
// not override it.
func defaultUserAgent() string {
	return fmt.Sprintf("pagou-go/%s (%s)", Version, GoVersion)
}

// GetVersionInfo returns version metadata for logging.
func GetVersionInfo() map[string]string {
	return map[string]string{
		"version":    Version,
		"commit":     GitCommit,
		"go_version": GoVersion,
	}
}
