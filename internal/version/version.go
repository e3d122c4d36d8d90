// Package version holds build information for taxsun.
package version

import "runtime/debug"

// Set with -ldflags, e.g.
// go build -ldflags "-X taxsun/internal/version.Version=1.0.0 -X taxsun/internal/version.Commit=abc123"
var (
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Build describes the running binary.
type Build struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"buildDate,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
}

// readBuildInfo is swapped out in tests.
var readBuildInfo = debug.ReadBuildInfo

// Get returns the build description. Values left unset by -ldflags are taken
// from the VCS stamp the go tool embeds, when there is one.
func Get() Build {
	b := Build{Version: Version}
	if Commit != "unknown" {
		b.Commit = Commit
	}
	if BuildDate != "unknown" {
		b.BuildDate = BuildDate
	}

	if info, ok := readBuildInfo(); ok {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if b.Commit == "" {
					b.Commit = s.Value
				}
			case "vcs.time":
				if b.BuildDate == "" {
					b.BuildDate = s.Value
				}
			case "vcs.modified":
				b.Modified = s.Value == "true"
			}
		}
	}
	return b
}

// String is the one-line form used by --version: the version, followed by
// the short commit when one is known.
func (b Build) String() string {
	if len(b.Commit) < 7 {
		return b.Version
	}
	s := b.Version + " (" + b.Commit[:7]
	if b.Modified {
		s += ", modified"
	}
	return s + ")"
}
