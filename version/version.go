// Package version reports build metadata injected through -ldflags:
//
//	go build -ldflags "-X github.com/teranos/taxa/version.VersionTag=v0.3.0 \
//	  -X github.com/teranos/taxa/version.CommitHash=$(git rev-parse HEAD) \
//	  -X github.com/teranos/taxa/version.BuildTime=$(date -u +%FT%TZ)"
package version

import (
	"fmt"
	"runtime"
)

var (
	VersionTag = "dev"
	CommitHash = "unknown"
	BuildTime  = "unknown"
)

// Info is the version information of the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the version information of the running binary.
func Get() Info {
	return Info{
		Version:   VersionTag,
		Commit:    CommitHash,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Short returns the abbreviated commit hash.
func (i Info) Short() string {
	if len(i.Commit) > 7 {
		return i.Commit[:7]
	}
	return i.Commit
}

func (i Info) String() string {
	return fmt.Sprintf("taxa %s (commit %s, built %s)", i.Version, i.Short(), i.BuildTime)
}
