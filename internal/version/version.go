// Package version holds the build version of symnav. Release builds set both
// variables with -ldflags "-X symnav/internal/version.Version=... -X symnav/internal/version.Commit=...".
package version

import "fmt"

var (
	// Version is the semantic version of symnav.
	Version = "0.4.0"

	// Commit is the git commit the binary was built from, empty for dev builds.
	Commit = ""
)

// shortCommit is how many hex digits of Commit Info shows.
const shortCommit = 7

// Info returns the version, followed by the abbreviated commit when one was
// stamped, e.g. "0.4.0 (1a2b3c4)". Commits no longer than shortCommit are
// not real hashes and are left out.
func Info() string {
	if len(Commit) <= shortCommit {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, Commit[:shortCommit])
}
