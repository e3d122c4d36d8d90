package version

import (
	"runtime/debug"
	"testing"
)

func stubBuildInfo(t *testing.T, settings ...debug.BuildSetting) {
	t.Helper()
	orig := readBuildInfo
	t.Cleanup(func() { readBuildInfo = orig })
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Settings: settings}, true
	}
}

func setVars(t *testing.T, version, commit, date string) {
	t.Helper()
	origVersion, origCommit, origDate := Version, Commit, BuildDate
	t.Cleanup(func() { Version, Commit, BuildDate = origVersion, origCommit, origDate })
	Version, Commit, BuildDate = version, commit, date
}

func TestGet_LinkerFlagsWin(t *testing.T) {
	setVars(t, "1.2.3", "abcdef123456", "2026-01-15")
	stubBuildInfo(t,
		debug.BuildSetting{Key: "vcs.revision", Value: "ffffffffffff"},
		debug.BuildSetting{Key: "vcs.time", Value: "2020-01-01T00:00:00Z"},
	)

	got := Get()
	want := Build{Version: "1.2.3", Commit: "abcdef123456", BuildDate: "2026-01-15"}
	if got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestGet_FallsBackToVCSStamp(t *testing.T) {
	setVars(t, "1.2.3", "unknown", "unknown")
	stubBuildInfo(t,
		debug.BuildSetting{Key: "vcs.revision", Value: "0123456789ab"},
		debug.BuildSetting{Key: "vcs.time", Value: "2026-02-01T10:00:00Z"},
		debug.BuildSetting{Key: "vcs.modified", Value: "true"},
	)

	got := Get()
	want := Build{Version: "1.2.3", Commit: "0123456789ab", BuildDate: "2026-02-01T10:00:00Z", Modified: true}
	if got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestGet_NoBuildInfo(t *testing.T) {
	setVars(t, "1.2.3", "unknown", "unknown")
	orig := readBuildInfo
	t.Cleanup(func() { readBuildInfo = orig })
	readBuildInfo = func() (*debug.BuildInfo, bool) { return nil, false }

	if got := Get(); got != (Build{Version: "1.2.3"}) {
		t.Errorf("Get() = %+v", got)
	}
}

func TestBuildString(t *testing.T) {
	tests := []struct {
		name  string
		build Build
		want  string
	}{
		{"no commit", Build{Version: "1.0.0"}, "1.0.0"},
		{"short commit", Build{Version: "1.0.0", Commit: "abc"}, "1.0.0"},
		{"exactly 7 chars", Build{Version: "2.0.0", Commit: "1234567"}, "2.0.0 (1234567)"},
		{"full hash", Build{Version: "1.0.0", Commit: "abc1234567890"}, "1.0.0 (abc1234)"},
		{"modified tree", Build{Version: "1.0.0", Commit: "abc1234567890", Modified: true}, "1.0.0 (abc1234, modified)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.build.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
