// Package build exposes build-time metadata stamped into the binary via
// -ldflags, surfaced by the healthcheck endpoint and startup logs.
package build

var (
	// gitRevision is set at build time:
	//   -ldflags "-X github.com/pinball-run/pinball/pkg/build.gitRevision=$(git rev-parse --short HEAD)"
	gitRevision = "unknown"
	// version is the release version, set the same way.
	version = "devel"
)

// GitRevision returns the git commit this binary was built from.
func GitRevision() string {
	return gitRevision
}

// Version returns the release version this binary was built as.
func Version() string {
	return version
}
