// Package version reports the build of the running binary.
//
// Release builds stamp the variables with ldflags:
//
//	go build -ldflags "-X github.com/rickgao/stocksync/internal/version.Version=$(git describe --tags) \
//	                   -X github.com/rickgao/stocksync/internal/version.Commit=$(git rev-parse --short HEAD)" ./cmd/stocksync
//
// Unstamped builds fall back to the VCS settings recorded by the Go toolchain.
package version

import (
	"runtime/debug"
	"sync"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
}

var (
	once sync.Once
	info Info
)

// Get returns the build info, reading embedded VCS data when ldflags were not set.
func Get() Info {
	once.Do(func() {
		info = Info{Version: Version, Commit: Commit}

		bi, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		info.GoVersion = bi.GoVersion
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "unknown" && len(s.Value) >= 7 {
					info.Commit = s.Value[:7]
				}
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
	})
	return info
}

// String returns a formatted version string.
func String() string {
	i := Get()
	s := i.Version + " (" + i.Commit + ")"
	if i.Modified {
		s += " dirty"
	}
	return s
}
