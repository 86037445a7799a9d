// Package version carries build metadata stamped in with -ldflags, e.g.
//
//	-X github.com/techblog-io/blog-smoke/internal/version.Version=v1.2.0
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info is the structured form printed by `blog-smoke version --json`.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func GetInfo() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String renders "v1.2.0 (abc1234)".
func String() string {
	return fmt.Sprintf("%s (%s)", Version, GitCommit)
}

// Full adds the build date, Go toolchain and platform.
func Full() string {
	i := GetInfo()
	return fmt.Sprintf("%s (%s) built %s with %s on %s", i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.Platform)
}
