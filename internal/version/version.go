// Package version holds build metadata set with -ldflags -X.
package version

var (
	// Version is the release tag.
	Version = "dev"
	// GitSHA is the commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String formats the build metadata on one line.
func String() string {
	return Version + " (commit " + GitSHA + ", built " + BuildTime + ")"
}
