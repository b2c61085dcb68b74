// Package buildinfo carries the stamps injected at link time:
//
//	go build -ldflags "-X 'github.com/m3rciful/accbot/core/buildinfo.Version=v1.2.3' \
//	  -X 'github.com/m3rciful/accbot/core/buildinfo.Commit=abcdef0' \
//	  -X 'github.com/m3rciful/accbot/core/buildinfo.Date=2025-08-30T12:00:00Z'" ./cmd/accbot
package buildinfo

import "strings"

var (
	// Name is the binary name shown in startup lines.
	Name = "accbot"
	// Version reports the semantic version or tag of the build.
	Version = "dev"
	// Commit reports the source control commit used for the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)

// String renders "accbot v1.2.3 (abcdef0 2025-08-30T12:00:00Z)". Empty parts
// are left out.
func String() string {
	var meta []string
	for _, s := range []string{Commit, Date} {
		if s != "" {
			meta = append(meta, s)
		}
	}
	out := Name + " " + Version
	if len(meta) > 0 {
		out += " (" + strings.Join(meta, " ") + ")"
	}
	return out
}
