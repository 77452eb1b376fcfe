// Package version carries build identification, stamped at link time via
// -ldflags "-X".
package version

import "fmt"

var (
	// Version is the release version of the counter binary.
	Version = "dev"
	// GitSHA is the git commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String renders the build identification in one line for logs and the
// status API.
func String() string {
	return fmt.Sprintf("%s (%s, built %s)", Version, GitSHA, BuildTime)
}
