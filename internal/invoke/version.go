package invoke

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a client release number as printed by "<client> --version".
type Version struct {
	Major int
	Minor int
	Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func (v Version) Less(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor < other.Minor
	}
	return v.Patch < other.Patch
}

// ParseVersion extracts the first dotted release number from out. When marker
// occurs in out, parsing starts right after it.
//
// Common formats:
//   - "git version 2.44.0"
//   - "git version 2.39.3 (Apple Git-146)"
//   - "git version 2.39.3.windows.1"
//   - "Mercurial Distributed SCM (version 6.5.2)"
func ParseVersion(out, marker string) (Version, bool) {
	s := strings.TrimSpace(out)
	if s == "" {
		return Version{}, false
	}
	if marker != "" {
		if idx := strings.Index(s, marker); idx >= 0 {
			s = strings.TrimSpace(s[idx+len(marker):])
		}
	}
	start := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if start < 0 {
		return Version{}, false
	}
	s = s[start:]
	// Keep only the leading numeric/dot portion ("2.39.3" from "2.39.3.windows.1").
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
	}
	s = strings.Trim(s[:end], ".")

	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return Version{}, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return Version{}, false
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return Version{}, false
	}
	patch := 0
	if len(parts) >= 3 {
		if p, err := strconv.Atoi(parts[2]); err == nil {
			patch = p
		}
	}
	return Version{Major: major, Minor: minor, Patch: patch}, true
}

// Probe runs "client --version" and checks the result against minimum. A missing
// binary yields an error satisfying IsNotFound.
func Probe(r Runner, client, marker string, minimum Version) (Version, error) {
	res, err := r.Run([]string{client, "--version"}, RunOptions{})
	if err != nil {
		return Version{}, err
	}
	out := res.Stdout
	if strings.TrimSpace(out) == "" {
		out = res.Stderr
	}
	got, ok := ParseVersion(out, marker)
	if !ok {
		return Version{}, fmt.Errorf("unable to parse %s version output: %q", client, strings.TrimSpace(out))
	}
	if got.Less(minimum) {
		return got, fmt.Errorf("%s %s is too old; bevcs requires %s >= %s", client, got, client, minimum)
	}
	return got, nil
}
