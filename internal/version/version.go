// Package version identifies the dso-capture tools and the build they came from
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Set with -ldflags "-X dso-capture/internal/version.Commit=..."
var (
	Version   = "0.1.0"
	Commit    = ""
	BuildDate = ""
)

// Info describes the running binary
type Info struct {
	Version   string
	Commit    string // Short VCS revision, "" when unknown
	Modified  bool   // Built from a dirty working tree
	BuildDate string
	GoVersion string
	Platform  string
}

// Get collects build information. A commit not set through ldflags is taken
// from the VCS stamp the go tool embeds.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.BuildDate == "" {
					info.BuildDate = s.Value
				}
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
	}

	if len(info.Commit) > 7 {
		info.Commit = info.Commit[:7]
	}
	return info
}

// GetFullVersion returns the version with the short commit, e.g. "0.1.0-3f2a9c1"
func GetFullVersion() string {
	return fullVersion(Get())
}

func fullVersion(info Info) string {
	v := info.Version
	if info.Commit != "" {
		v += "-" + info.Commit
	}
	if info.Modified {
		v += "-dirty"
	}
	return v
}

// UserAgent identifies the writer of a recording, e.g. "dso-capture/0.1.0 (linux/amd64)"
func UserAgent(appName string) string {
	info := Get()
	return fmt.Sprintf("%s/%s (%s)", appName, fullVersion(info), info.Platform)
}

// GetVersionInfo returns the multi-line text printed by --version
func GetVersionInfo(appName string) string {
	info := Get()

	var b strings.Builder
	fmt.Fprintf(&b, "%s version %s", appName, info.Version)
	if info.Commit != "" {
		fmt.Fprintf(&b, " (commit %s", info.Commit)
		if info.Modified {
			b.WriteString(", modified")
		}
		b.WriteString(")")
	}
	if info.BuildDate != "" {
		fmt.Fprintf(&b, "\nBuilt: %s", info.BuildDate)
	}
	fmt.Fprintf(&b, "\nGo: %s", info.GoVersion)
	fmt.Fprintf(&b, "\nPlatform: %s", info.Platform)
	return b.String()
}
