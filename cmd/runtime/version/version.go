// Package version holds the build version stamped in at link time.
package version

import "fmt"

var (
	// semVer is overridden by -ldflags at release build.
	semVer    = "0.1.0"
	gitCommit = "dev"
)

// Get returns the human readable version string.
func Get() string {
	return fmt.Sprintf("%s-%s", semVer, gitCommit)
}
