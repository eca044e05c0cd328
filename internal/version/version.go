// Package version provides centralized version information for cxref.
// This allows all packages to reference a single source of truth for version info.
package version

import "strconv"

// These variables can be overridden at build time using ldflags:
// go build -ldflags "-X cxref/internal/version.Version=1.0.0 -X cxref/internal/version.Commit=abc123"
var (
	// Version is the semantic version of cxref
	Version = "0.3.0"

	// Commit is the git commit hash (set at build time)
	Commit = "unknown"

	// BuildDate is the build timestamp (set at build time)
	BuildDate = "unknown"
)

// Info returns a formatted version string
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns complete version information including the index format
// version pair, which decides cache compatibility.
func Full(indexMajor, indexMinor int) string {
	return "cxref version " + Version + "\n" +
		"Index format: " + strconv.Itoa(indexMajor) + "." + strconv.Itoa(indexMinor) + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate
}
