// Package version carries build-time identifying information printed by
// the CLI's --version flag.
package version

// Set via -ldflags "-X flowa/pkg/version.BuildDate=... -X flowa/pkg/version.GitCommit=..."
// by cmd/installer; a plain `go build` keeps the dev defaults.
var (
	Version   = "0.1.0"
	BuildDate = "dev"
	GitCommit = "unknown"
)
