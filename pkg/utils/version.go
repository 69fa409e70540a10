// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

import (
	"runtime"
	"runtime/debug"
)

// Set at link time with -X.
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	Sha       string `json:"sha"`
	Buildtime string `json:"buildtime"`
	GoVersion string `json:"go_version"`
}

// Build returns the link-time values. Values still at their defaults are
// filled from the module and VCS stamps of the binary when it has them.
func Build() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Sha:       Sha,
		Buildtime: Buildtime,
		GoVersion: runtime.Version(),
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}

	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Sha == "HEAD" {
				info.Sha = s.Value
			}
		case "vcs.time":
			if info.Buildtime == "dev" {
				info.Buildtime = s.Value
			}
		}
	}

	return info
}
