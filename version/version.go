// Package version records build information stamped at link time, e.g.
//
//	go build -ldflags "-X github.com/rheese/tablescan/version.GitRelease=v0.2.0"
package version

var (
	// GitRelease is the tag or branch the binary was built from.
	GitRelease = "dev"

	// GitCommit is the hash of the build commit.
	GitCommit = "unknown"

	// GitCommitDate is the date of the build commit.
	GitCommitDate = "unknown"

	// GoInfo is the Go toolchain the binary was built with.
	GoInfo = "unknown"
)
