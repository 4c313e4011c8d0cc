// Package version carries build-time version metadata, injected via
// -ldflags by the release pipeline.
package version

import "fmt"

// Populated at build time. Defaults identify ad-hoc builds.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String returns the full human-readable version line.
func String() string {
	return fmt.Sprintf("trustfang %s (commit %s, built %s)", Version, Commit, Date)
}
