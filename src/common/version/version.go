// Package version describes the build of a pcforge tool.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Unset is reported for any field neither ldflags nor the Go build info provide
const Unset = "unknown"

// Info identifies one pcforge binary
type Info struct {
	Tool      string
	Version   string // "0.3.0", or "dev" for untagged builds
	GitCommit string // short hash
	BuildDate string // RFC 3339
}

// New returns an Info for tool with dev defaults
func New(tool string) *Info {
	return &Info{Tool: tool, Version: "dev", GitCommit: Unset, BuildDate: Unset}
}

// Set applies the ldflags values. Empty and "unknown" values are filled
// from the VCS stamp the Go toolchain embeds, when there is one.
func (i *Info) Set(ver, commit, date string) {
	if ver != "" {
		i.Version = ver
	}
	i.GitCommit = orUnset(commit)
	i.BuildDate = orUnset(date)

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if i.GitCommit == Unset && s.Value != "" {
				i.GitCommit = shortHash(s.Value)
			}
		case "vcs.time":
			if i.BuildDate == Unset && s.Value != "" {
				i.BuildDate = s.Value
			}
		}
	}
}

func orUnset(s string) string {
	if s == "" {
		return Unset
	}
	return s
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}

// String returns "pcbuild 0.3.0 (4f9f297)"
func (i *Info) String() string {
	return fmt.Sprintf("%s %s (%s)", i.Tool, i.Version, i.GitCommit)
}

// Full returns a multi-line description for the version command
func (i *Info) Full() string {
	return fmt.Sprintf(`%s
  Version:    %s
  Build Date: %s
  Git Commit: %s
  Go Version: %s
  Platform:   %s/%s`,
		i.Tool,
		i.Version,
		i.BuildDate,
		i.GitCommit,
		runtime.Version(),
		runtime.GOOS, runtime.GOARCH,
	)
}

// Map returns the fields for JSON output
func (i *Info) Map() map[string]string {
	return map[string]string{
		"tool":       i.Tool,
		"version":    i.Version,
		"build_date": i.BuildDate,
		"git_commit": i.GitCommit,
		"go_version": runtime.Version(),
		"platform":   runtime.GOOS + "/" + runtime.GOARCH,
	}
}
