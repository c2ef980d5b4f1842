// Package version exposes build metadata the rest of agentcore needs to
// identify itself: to its own logs, and to the MCP servers it dials out to.
//
// Go 1.18+ automatically embeds VCS info (git commit, dirty flag, etc.)
// into the binary via runtime/debug.BuildInfo. No -ldflags required.
package version

import (
	"runtime/debug"
	"strconv"
)

// AppName is the application name used in version strings and protocol handshakes.
const AppName = "agentcore"

// GitCommit is the short git commit hash (8 chars) from build info.
// Set to "dev" when build info is unavailable (e.g., `go test`, non-git builds).
var GitCommit = initGitCommit()

// Dirty reports whether the binary was built from a working tree with
// uncommitted changes, when that's recorded in build info.
var Dirty = initDirty()

func initGitCommit() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 8 {
				return s.Value[:8]
			}
			return s.Value
		}
	}
	return "dev"
}

func initDirty() bool {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return false
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.modified" {
			dirty, err := strconv.ParseBool(s.Value)
			return err == nil && dirty
		}
	}
	return false
}

// UserAgent returns the identifier agentcore presents to MCP backends during
// the initialize handshake and logs at startup, e.g. "agentcore/a3f8c2d1" or
// "agentcore/a3f8c2d1-dirty".
func UserAgent() string {
	if Dirty {
		return AppName + "/" + GitCommit + "-dirty"
	}
	return AppName + "/" + GitCommit
}
