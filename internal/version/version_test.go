package version

import (
	"runtime"
	"testing"
)

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		version, commit, date string
		want                  string
	}{
		{"dev", "none", "unknown", "dev (development build)"},
		{"v1.2.0", "abc1234", "2026-05-01", "v1.2.0 (commit: abc1234, built: 2026-05-01)"},
	}

	for _, tt := range tests {
		if got := FormatVersion(tt.version, tt.commit, tt.date); got != tt.want {
			t.Errorf("FormatVersion(%q) = %q, want %q", tt.version, got, tt.want)
		}
	}
}

func TestGetInfo(t *testing.T) {
	info := GetInfo()
	if info.Version != Version || info.Commit != Commit {
		t.Errorf("info does not reflect build vars: %+v", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("unexpected go version %q", info.GoVersion)
	}
	if info.Platform == "" {
		t.Error("platform should be set")
	}
}
