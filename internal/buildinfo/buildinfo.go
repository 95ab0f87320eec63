package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

func read() *debug.BuildInfo {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	return info
}

func setting(info *debug.BuildInfo, key string) string {
	if info == nil {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}

// Version returns the module version or "dev" when unset.
func Version() string {
	return version(read())
}

func version(info *debug.BuildInfo) string {
	if info == nil || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "dev"
	}
	return info.Main.Version
}

// Tags returns the GOFLAGS build tags recorded at compile time.
func Tags() string {
	return setting(read(), "-tags")
}

// Commit returns the abbreviated VCS revision the binary was built from,
// suffixed with "+dirty" for modified trees.
func Commit() string {
	return commit(read())
}

func commit(info *debug.BuildInfo) string {
	rev := setting(info, "vcs.revision")
	if rev == "" {
		return ""
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if setting(info, "vcs.modified") == "true" {
		rev += "+dirty"
	}
	return rev
}

// VersionWithTags returns the version string and tags if present.
func VersionWithTags() string {
	version := Version()
	tags := Tags()
	if tags == "" {
		return version
	}
	return fmt.Sprintf("%s (tags: %s)", version, tags)
}

// Summary is the one-line output of `bevcs version`.
func Summary() string {
	s := "bevcs " + VersionWithTags()
	if c := Commit(); c != "" {
		s += " commit " + c
	}
	return fmt.Sprintf("%s %s/%s %s", s, runtime.GOOS, runtime.GOARCH, runtime.Version())
}
