package version

import (
	"fmt"
	"runtime"
)

//nolint:gochecknoglobals // Overridden via -ldflags.
var (
	// Version is the semantic version of the build.
	Version = "0.1.0"
	// Commit is the short git SHA of the build.
	Commit = "none"
	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// Name is the binary name used in logs and the User-Agent header.
const Name = "climate-alarm"

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns the version with commit, build time and platform.
func Full() string {
	return fmt.Sprintf("%s %s (commit %s, built %s, %s/%s)",
		Name, Version, Commit, BuildTime, runtime.GOOS, runtime.GOARCH)
}

// UserAgent returns the value sent in HTTP requests.
func UserAgent() string {
	return Name + "/" + Version
}
