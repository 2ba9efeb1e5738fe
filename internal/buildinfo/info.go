// Package buildinfo carries version metadata stamped in at link time, e.g.
// -ldflags "-X github.com/cleared-dev/recon/internal/buildinfo.Version=v0.3.0".
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String formats the build metadata for --version output and commit trailers.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
