// Package build holds build-time version information injected via ldflags.
//
// To inject values at build time:
//
//	go build -ldflags "-X github.com/haivivi/voicegate/cmd/voicegate/internal/build.Version=v1.0.0 \
//	  -X github.com/haivivi/voicegate/cmd/voicegate/internal/build.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/haivivi/voicegate/cmd/voicegate/internal/build.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package build

import (
	"fmt"
	"runtime"

	"github.com/haivivi/voicegate/pkg/voiceprint"
)

// These variables are set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info is the structured form of the build metadata.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
	Schema  string `json:"profile_schema"`
}

// Get returns the build metadata.
func Get() Info {
	return Info{
		Version: Version,
		Commit:  Commit,
		Date:    Date,
		Go:      runtime.Version(),
		Schema:  voiceprint.SchemaVersion,
	}
}

// String returns a formatted version string.
func String() string {
	return fmt.Sprintf("voicegate %s (%s) built %s %s/%s",
		Version, Commit, Date, runtime.GOOS, runtime.GOARCH)
}
