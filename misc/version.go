// Package misc keeps build identification shared by all binaries.
package misc

import (
	"runtime/debug"
	"sync"
)

// Set with -ldflags "-X folio/misc.version=... -X folio/misc.gitHash=..."
// when building release binaries.
var (
	appName = "folio"
	version = ""
	gitHash = ""
)

var buildInfo = sync.OnceValues(func() (string, string) {
	ver, hash := "dev", "unknown"
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ver, hash
	}
	if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		ver = bi.Main.Version
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" && len(s.Value) > 0 {
			hash = s.Value[:min(len(s.Value), 12)]
		}
	}
	return ver, hash
})

func GetAppName() string {
	return appName
}

// GetVersion returns program version.
func GetVersion() string {
	if version != "" {
		return version
	}
	ver, _ := buildInfo()
	return ver
}

// GetGitHash returns short revision program was built from.
func GetGitHash() string {
	if gitHash != "" {
		return gitHash
	}
	_, hash := buildInfo()
	return hash
}
