// Package version exposes the build stamp shown by `roster --version`.
package version

import "fmt"

// Stamped by the release build:
//
//	-ldflags "-X .../internal/version.Commit=... -X .../internal/version.BuildTime=..."
var (
	Commit    = "unknown"
	BuildTime = "unknown"
)

// String renders the stamp. Builds are identified by commit, not semver.
func String() string {
	return fmt.Sprintf("roster dev (commit: %s, built: %s)", shortCommit(), BuildTime)
}

func shortCommit() string {
	if len(Commit) > 7 {
		return Commit[:7]
	}
	return Commit
}
