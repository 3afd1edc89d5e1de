package version

import (
	"strings"
	"testing"
)

func TestFullVersion(t *testing.T) {
	tests := []struct {
		info Info
		want string
	}{
		{Info{Version: "1.2.0"}, "1.2.0"},
		{Info{Version: "1.2.0", Commit: "3f2a9c1"}, "1.2.0-3f2a9c1"},
		{Info{Version: "1.2.0", Commit: "3f2a9c1", Modified: true}, "1.2.0-3f2a9c1-dirty"},
	}
	for _, tt := range tests {
		if got := fullVersion(tt.info); got != tt.want {
			t.Errorf("fullVersion(%+v) = %q, want %q", tt.info, got, tt.want)
		}
	}
}

func TestCommitIsShortened(t *testing.T) {
	old := Commit
	defer func() { Commit = old }()
	Commit = "0123456789abcdef"

	if got := Get().Commit; got != "0123456" {
		t.Errorf("Commit = %q", got)
	}
}

func TestUserAgent(t *testing.T) {
	ua := UserAgent("dso-capture")
	if !strings.HasPrefix(ua, "dso-capture/"+Version) || !strings.HasSuffix(ua, ")") {
		t.Errorf("unexpected user agent %q", ua)
	}
	if len(ua) > 255 {
		t.Errorf("user agent must fit a recording string field, got %d bytes", len(ua))
	}
}

func TestGetVersionInfo(t *testing.T) {
	out := GetVersionInfo("DSO Capture")
	if !strings.HasPrefix(out, "DSO Capture version "+Version) {
		t.Errorf("unexpected first line in %q", out)
	}
	if !strings.Contains(out, "\nGo: ") || !strings.Contains(out, "\nPlatform: ") {
		t.Errorf("missing runtime details in %q", out)
	}
}
