package vcs

import (
	"errors"
	"testing"
)

func TestParseIdentity(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, name, email string
	}{
		{"John Doe <jdoe@example.com>", "John Doe", "jdoe@example.com"},
		{"John Doe", "John Doe", ""},
		{"jdoe <>", "jdoe", ""},
	}
	for _, tc := range cases {
		name, email, err := ParseIdentity(tc.in)
		if err != nil {
			t.Fatalf("ParseIdentity(%q): %v", tc.in, err)
		}
		if name != tc.name || email != tc.email {
			t.Fatalf("ParseIdentity(%q) = (%q, %q), want (%q, %q)", tc.in, name, email, tc.name, tc.email)
		}
	}
}

func TestParseIdentityMalformed(t *testing.T) {
	t.Parallel()

	malformed := []string{
		"John Doe <jdoe@example.com> extra",
		"John Doe <a@example.com> <b@example.com>",
		" <jdoe@example.com>",
		"",
	}
	for _, in := range malformed {
		if _, _, err := ParseIdentity(in); !errors.Is(err, ErrMalformedIdentity) {
			t.Fatalf("ParseIdentity(%q): expected ErrMalformedIdentity, got %v", in, err)
		}
	}
}

func TestFormatIdentityRoundTrip(t *testing.T) {
	t.Parallel()

	for _, id := range []string{"John Doe <jdoe@example.com>", "John Doe"} {
		name, email, err := ParseIdentity(id)
		if err != nil {
			t.Fatal(err)
		}
		if got := FormatIdentity(name, email); got != id {
			t.Fatalf("FormatIdentity = %q, want %q", got, id)
		}
	}
}

func clearLoginEnv(t *testing.T) {
	t.Helper()
	for _, key := range loginEnvVars {
		t.Setenv(key, "")
	}
}

func TestGuessUserID(t *testing.T) {
	clearLoginEnv(t)
	t.Setenv("USER", "jdoe")
	orig := hostname
	hostname = func() (string, error) { return "box", nil }
	t.Cleanup(func() { hostname = orig })

	id, err := guessUserID()
	if err != nil {
		t.Fatalf("guessUserID: %v", err)
	}
	if id != "jdoe <jdoe@box>" {
		t.Fatalf("id = %q", id)
	}
}

func TestGuessUserIDPrefersLogname(t *testing.T) {
	clearLoginEnv(t)
	t.Setenv("LOGNAME", "first")
	t.Setenv("USERNAME", "last")
	orig := hostname
	hostname = func() (string, error) { return "", errors.New("no hostname") }
	t.Cleanup(func() { hostname = orig })

	id, err := guessUserID()
	if err != nil {
		t.Fatalf("guessUserID: %v", err)
	}
	if id != "first" {
		t.Fatalf("id = %q, want bare login name", id)
	}
}

func TestGuessUserIDNoLogin(t *testing.T) {
	clearLoginEnv(t)
	if _, err := guessUserID(); err == nil {
		t.Fatal("expected error without a login name")
	}
}
