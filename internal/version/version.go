// Package version reports the build's version from the embedded module and VCS metadata.
package version

import (
	"fmt"

	"github.com/earthboundkid/versioninfo/v2"
)

// GetVersion returns a short version string, e.g. "v1.2.0" or a revision
// hash for untagged builds.
func GetVersion() string {
	return versioninfo.Short()
}

// GetFullVersion returns the version with commit info when the build has it
func GetFullVersion() string {
	ver := GetVersion()
	rev := versioninfo.Revision
	if rev == "" || rev == "unknown" {
		return ver
	}
	if len(rev) > 7 {
		rev = rev[:7]
	}

	full := fmt.Sprintf("%s (commit: %s", ver, rev)
	if !versioninfo.LastCommit.IsZero() {
		full += ", " + versioninfo.LastCommit.UTC().Format("2006-01-02")
	}
	if versioninfo.DirtyBuild {
		full += ", dirty"
	}
	return full + ")"
}
