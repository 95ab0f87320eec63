package vcs

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var identityPattern = regexp.MustCompile(`(.*) <([^>]*)>(.*)`)

// loginEnvVars are consulted in order when guessing a login name.
var loginEnvVars = []string{"LOGNAME", "USER", "LNAME", "USERNAME"}

// ParseIdentity splits "Name <email>" into its parts. A value without an
// email part is returned as a bare name. Text after the closing bracket and
// a second bracketed segment are rejected.
func ParseIdentity(value string) (name, email string, err error) {
	m := identityPattern.FindStringSubmatch(value)
	if m == nil {
		if strings.TrimSpace(value) == "" {
			return "", "", fmt.Errorf("%w: empty name", ErrMalformedIdentity)
		}
		return value, "", nil
	}
	if strings.ContainsAny(m[1], "<>") {
		return "", "", fmt.Errorf("%w: %q has more than one bracketed segment", ErrMalformedIdentity, value)
	}
	if m[3] != "" {
		return "", "", fmt.Errorf("%w: %q has trailing text %q", ErrMalformedIdentity, value, m[3])
	}
	if strings.TrimSpace(m[1]) == "" {
		return "", "", fmt.Errorf("%w: %q has an empty name", ErrMalformedIdentity, value)
	}
	return m[1], m[2], nil
}

// FormatIdentity is the inverse of ParseIdentity.
func FormatIdentity(name, email string) string {
	if email == "" {
		return name
	}
	return fmt.Sprintf("%s <%s>", name, email)
}

var hostname = os.Hostname

func guessUserID() (string, error) {
	name := ""
	for _, key := range loginEnvVars {
		if v := os.Getenv(key); v != "" {
			name = v
			break
		}
	}
	if name == "" {
		return "", errors.New("cannot guess a user id: no login name in the environment")
	}
	host, err := hostname()
	if err != nil || host == "" {
		return name, nil
	}
	return FormatIdentity(name, name+"@"+host), nil
}
