package featurekit

import (
	"runtime/debug"
)

const (
	sdkName    = "featurekit-go"
	modulePath = "github.com/featurekit/featurekit-go"

	unknownVersion = "unknown"
)

// Version returns the version of this module as recorded in the build info of the running binary,
// or "unknown" for development builds.
func Version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return unknownVersion
	}
	return moduleVersion(info)
}

func moduleVersion(info *debug.BuildInfo) string {
	version := info.Main.Version
	if info.Main.Path != modulePath {
		version = ""
		for _, dep := range info.Deps {
			if dep.Path == modulePath {
				version = dep.Version
				break
			}
		}
	}
	if version == "" || version == "(devel)" {
		return unknownVersion
	}
	return version
}

// getUserAgent returns "featurekit-go/<version>".
func getUserAgent() string {
	return sdkName + "/" + Version()
}
