// Package version reports what build of subgen is running.
package version

import (
	"os/exec"
	"runtime/debug"
	"strings"
)

// Set with -ldflags at release time.
var (
	Version = "0.3.0"
	Commit  = "unknown"
	Date    = "unknown"
)

// UserAgent identifies subgen on outbound HTTP requests.
func UserAgent() string {
	return "subgen/" + Version
}

// Info describes the running binary.
type Info struct {
	Version string
	Commit  string
	Date    string
}

// Current combines the link-time values with the VCS stamp the Go
// toolchain embeds, so dev builds still report a revision.
func Current() Info {
	info := Info{Version: Resolve(), Commit: Commit, Date: Date}
	if stamp, ok := readStamp(); ok {
		if info.Commit == "unknown" {
			info.Commit = stamp.revision
		}
		if info.Date == "unknown" && stamp.time != "" {
			info.Date = stamp.time
		}
	}
	return info
}

// Resolve returns Version, with a build suffix for anything that is not a
// release. Release builds have Commit linked in and report Version as is.
// Otherwise the suffix comes from the embedded VCS stamp, then from git
// when run inside a checkout.
func Resolve() string {
	return resolveVersion(Version, Commit, readStamp, runGit)
}

type vcsStamp struct {
	revision string
	time     string
	modified bool
}

func resolveVersion(base, commit string, stamp func() (vcsStamp, bool), git func(...string) (string, error)) string {
	if base == "" {
		base = "0.0.0"
	}
	if commit != "" && commit != "unknown" {
		return base
	}

	if s, ok := stamp(); ok {
		suffix := shortRevision(s.revision)
		if s.modified {
			suffix += "-dirty"
		}
		return base + "-" + suffix
	}

	if suffix := gitSuffix(base, git); suffix != "" {
		return base + "-" + suffix
	}
	return base
}

func gitSuffix(base string, git func(...string) (string, error)) string {
	if _, err := git("rev-parse", "--git-dir"); err != nil {
		return ""
	}
	if _, err := git("describe", "--tags", "--exact-match"); err == nil {
		return ""
	}

	desc, err := git("describe", "--tags", "--dirty", "--always")
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(desc, "v"+base+"-")
}

func readStamp() (vcsStamp, bool) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return vcsStamp{}, false
	}
	return stampFromSettings(bi.Settings)
}

func stampFromSettings(settings []debug.BuildSetting) (vcsStamp, bool) {
	var s vcsStamp
	for _, kv := range settings {
		switch kv.Key {
		case "vcs.revision":
			s.revision = kv.Value
		case "vcs.time":
			s.time = kv.Value
		case "vcs.modified":
			s.modified = kv.Value == "true"
		}
	}
	return s, s.revision != ""
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

func runGit(args ...string) (string, error) {
	out, err := exec.Command("git", args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
