// Package version carries build identification, stamped via -ldflags.
package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the full build identity for the -version flag.
func String() string {
	return fmt.Sprintf("portscan %s (%s, built %s)", Version, GitSHA, BuildTime)
}
