package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

var (
	Version   = "(dev)"
	buildInfo = debug.BuildInfo{}
)

func init() {
	if bi, ok := debug.ReadBuildInfo(); ok {
		buildInfo = *bi
		if len(bi.Main.Version) > 0 {
			Version = bi.Main.Version
		}
	}
}

// GetMore formats the running binary's version line; with mod=true it
// returns the full module build list instead (useful when reporting which
// third-party crypto/transport libraries a build was linked against),
// falling back to the version line when no build info is available.
func GetMore(mod bool) string {
	if mod {
		m := buildInfo.String()
		if len(m) > 0 {
			return fmt.Sprintf("\t%s\n", strings.ReplaceAll(m[:len(m)-1], "\n", "\n\t"))
		}
	}
	return fmt.Sprintf("version %s %s %s/%s\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
