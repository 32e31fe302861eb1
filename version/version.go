// Package version reports which longrun build is running.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/teranos/longrun/version.Version=...".
// Builds without them fall back to the VCS stamp the Go toolchain embeds.
var (
	CommitHash = "dev"
	BuildTime  = "unknown"
	Version    = "dev"
)

// Info describes the running binary; `longrun version --json` prints it.
type Info struct {
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	Version    string `json:"version"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

func Get() Info {
	info := Info{
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		Version:    Version,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info = info.withBuildSettings(bi.Settings)
	}
	return info
}

// withBuildSettings fills fields still at their unset values from the
// toolchain's vcs.* build settings.
func (i Info) withBuildSettings(settings []debug.BuildSetting) Info {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if i.CommitHash == "dev" && s.Value != "" {
				i.CommitHash = s.Value
			}
		case "vcs.time":
			if i.BuildTime == "unknown" && s.Value != "" {
				i.BuildTime = s.Value
			}
		}
	}
	return i
}

func (i Info) String() string {
	return fmt.Sprintf("longrun %s (commit %s, built %s)", i.Version, i.CommitHash, i.BuildTime)
}

// Short is the abbreviated commit, as reported by /health.
func (i Info) Short() string {
	if len(i.CommitHash) >= 7 {
		return i.CommitHash[:7]
	}
	return i.CommitHash
}
