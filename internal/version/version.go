// Package version carries build identity and the product tokens the proxy
// sends on the wire.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/muurk/jsonupnp/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/jsonupnp/internal/version.Commit=abc123"
//
// Unset values are filled from the embedded VCS stamp, then from "dev".
var (
	// Version is the release version
	Version = ""
	// Commit is the short git revision
	Commit = ""
)

// Product is the product token used in SERVER and User-Agent headers
const Product = "jsonupnp-proxy"

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		fromVCS(vcsSettings(info))
	}
	if Version == "" {
		Version = "dev-" + time.Now().Format("20060102-150405")
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

func vcsSettings(info *debug.BuildInfo) map[string]string {
	out := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		out[s.Key] = s.Value
	}
	return out
}

// fromVCS fills unset fields from build settings. Tags are not stamped,
// so the version is derived from the commit date.
func fromVCS(vcs map[string]string) {
	if rev := vcs["vcs.revision"]; Commit == "" && rev != "" {
		if len(rev) > 7 {
			rev = rev[:7]
		}
		if vcs["vcs.modified"] == "true" {
			rev += "-dirty"
		}
		Commit = rev
	}
	if Version == "" && vcs["vcs.time"] != "" {
		if t, err := time.Parse(time.RFC3339, vcs["vcs.time"]); err == nil {
			Version = "dev-" + t.Format("20060102")
		}
	}
}

// Full returns the version with its commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// ServerString returns the SSDP SERVER header value in the
// "OS/version UPnP/1.1 product/version" form
func ServerString() string {
	return fmt.Sprintf("%s/%s UPnP/1.1 %s/%s", runtime.GOOS, runtime.Version(), Product, Version)
}

// UserAgent returns the User-Agent sent when fetching descriptions
func UserAgent() string {
	return Product + "/" + Version
}
