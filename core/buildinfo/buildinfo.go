// Package buildinfo carries release metadata stamped at link time:
//
//	-X 'github.com/m3rciful/logobot/core/buildinfo.Version=v0.3.0'
//	-X 'github.com/m3rciful/logobot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/logobot/core/buildinfo.Date=2026-01-10T12:00:00Z'
package buildinfo

// Defaults apply to local builds.
var (
	Version = "dev"
	Commit  = "local"
	Date    = ""
)

// String renders the build as "version (commit, date)".
func String() string {
	if Date == "" {
		return Version + " (" + Commit + ")"
	}
	return Version + " (" + Commit + ", " + Date + ")"
}
