package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/thiagokokada/bevcs/internal/config"
	"github.com/thiagokokada/bevcs/internal/invoke"
	"github.com/thiagokokada/bevcs/internal/vcs"
)

var hashRE = regexp.MustCompile(`^[0-9a-f]{40}$`)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := run(args, strings.NewReader(stdin), &out, &errOut)
	t.Cleanup(func() {
		if t.Failed() && errOut.Len() > 0 {
			t.Logf("stderr:\n%s", errOut.String())
		}
	})
	return out.String(), err
}

// newGitTree initializes a git tree with a configured identity.
func newGitTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := "backend = \"git\"\nuser_id = \"Test User <test@example.com>\"\n"
	if err := os.WriteFile(filepath.Join(dir, config.FileName), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, "", "init", "-C", dir); err != nil {
		t.Fatalf("init: %v", err)
	}
	return dir
}

func commit(t *testing.T, dir, summary string) string {
	t.Helper()
	out, err := runCLI(t, "", "commit", "-C", dir, "-m", summary)
	if err != nil {
		t.Fatalf("commit %q: %v", summary, err)
	}
	rev := strings.TrimSpace(out)
	if !hashRE.MatchString(rev) {
		t.Fatalf("commit printed %q, want a revision id", out)
	}
	return rev
}

func TestWriteCommitAndReadBack(t *testing.T) {
	dir := newGitTree(t)

	if _, err := runCLI(t, "hello\n", "write", "-C", dir, "notes.txt"); err != nil {
		t.Fatalf("write: %v", err)
	}
	first := commit(t, dir, "first")
	if _, err := runCLI(t, "bye\n", "write", "-C", dir, "notes.txt"); err != nil {
		t.Fatalf("write: %v", err)
	}
	second := commit(t, dir, "second")

	out, err := runCLI(t, "", "cat", "-C", dir, "--rev", "0", "notes.txt")
	if err != nil || out != "hello\n" {
		t.Fatalf("cat -r 0 = %q, %v", out, err)
	}
	out, err = runCLI(t, "", "cat", "-C", dir, "notes.txt")
	if err != nil || out != "bye\n" {
		t.Fatalf("cat = %q, %v", out, err)
	}
	out, err = runCLI(t, "", "cat", "-C", dir, "--rev", first, "notes.txt")
	if err != nil || out != "hello\n" {
		t.Fatalf("cat by id = %q, %v", out, err)
	}

	out, err = runCLI(t, "", "rev", "-C", dir, "--", "-1")
	if err != nil || strings.TrimSpace(out) != second {
		t.Fatalf("rev -1 = %q, %v; want %s", out, err, second)
	}
	if _, err := runCLI(t, "", "rev", "-C", dir, "5"); err == nil {
		t.Fatal("rev 5 succeeded with two commits")
	}
}

func TestEmptyCommitExitCode(t *testing.T) {
	dir := newGitTree(t)

	_, err := runCLI(t, "", "commit", "-C", dir, "-m", "nothing")
	if !errors.Is(err, vcs.ErrEmptyCommit) {
		t.Fatalf("err = %v, want ErrEmptyCommit", err)
	}
	if got := ExitCode(err); got != ExitEmptyCommit {
		t.Fatalf("ExitCode = %d, want %d", got, ExitEmptyCommit)
	}
	if _, err := runCLI(t, "", "commit", "-C", dir, "-m", "nothing", "--allow-empty"); err != nil {
		t.Fatalf("allow-empty commit: %v", err)
	}
}

func TestRootAndDetect(t *testing.T) {
	dir := newGitTree(t)
	sub := filepath.Join(dir, "sub")
	if _, err := runCLI(t, "", "mkdir", "-C", dir, "sub"); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	out, err := runCLI(t, "", "root", "-C", sub)
	if err != nil || strings.TrimSpace(out) != dir {
		t.Fatalf("root = %q, %v; want %s", out, err, dir)
	}
	out, err = runCLI(t, "", "detect", "-C", sub)
	if err != nil || strings.TrimSpace(out) != "git" {
		t.Fatalf("detect = %q, %v", out, err)
	}
	out, err = runCLI(t, "", "detect", "-C", t.TempDir())
	if err != nil || strings.TrimSpace(out) != vcs.NullName {
		t.Fatalf("detect plain dir = %q, %v", out, err)
	}
}

func TestErrorsMapToExitCodes(t *testing.T) {
	dir := newGitTree(t)

	_, err := runCLI(t, "", "cat", "-C", dir, "missing.txt")
	if got := ExitCode(err); got != ExitNoSuchFile {
		t.Fatalf("cat missing: ExitCode(%v) = %d", err, got)
	}

	outside := filepath.Join(t.TempDir(), "outside.txt")
	_, err = runCLI(t, "x", "write", "-C", dir, outside)
	if got := ExitCode(err); got != ExitNotInRoot {
		t.Fatalf("write outside: ExitCode(%v) = %d", err, got)
	}
	if _, statErr := os.Stat(outside); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("refused write touched disk: %v", statErr)
	}

	bad := t.TempDir()
	if err := os.WriteFile(filepath.Join(bad, config.FileName), []byte("colour = true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = runCLI(t, "", "detect", "-C", bad)
	if got := ExitCode(err); got != ExitConfig {
		t.Fatalf("bad config: ExitCode(%v) = %d", err, got)
	}
}

func TestDupAndDiff(t *testing.T) {
	dir := newGitTree(t)
	if _, err := runCLI(t, "hello\n", "write", "-C", dir, "notes.txt"); err != nil {
		t.Fatal(err)
	}
	commit(t, dir, "first")
	if _, err := runCLI(t, "bye\n", "write", "-C", dir, "notes.txt"); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(t.TempDir(), "copy")
	if _, err := runCLI(t, "", "dup", "-C", dir, "--rev", "0", dest); err != nil {
		t.Fatalf("dup: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dest, "notes.txt"))
	if err != nil || string(data) != "hello\n" {
		t.Fatalf("duplicate contents = %q, %v", data, err)
	}

	out, err := runCLI(t, "", "diff", "-C", dir, "--color", "never", "notes.txt")
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	for _, want := range []string{"--- a/notes.txt", "+++ b/notes.txt", "-hello", "+bye"} {
		if !strings.Contains(out, want) {
			t.Fatalf("diff output missing %q:\n%s", want, out)
		}
	}
}

func TestRemoveRecursive(t *testing.T) {
	dir := newGitTree(t)
	if _, err := runCLI(t, "a", "write", "-C", dir, "top/sub/a.txt"); err == nil {
		t.Fatal("write into a missing directory succeeded")
	}
	if _, err := runCLI(t, "", "mkdir", "-C", dir, "top/sub"); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, "a", "write", "-C", dir, "top/sub/a.txt"); err != nil {
		t.Fatal(err)
	}
	commit(t, dir, "add tree")

	if _, err := runCLI(t, "", "rm", "-C", dir, "-r", "top"); err != nil {
		t.Fatalf("rm -r: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "top")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("top still present: %v", err)
	}
	commit(t, dir, "remove tree")
}

func TestWhoami(t *testing.T) {
	dir := newGitTree(t)
	out, err := runCLI(t, "", "whoami", "-C", dir)
	if err != nil || strings.TrimSpace(out) != "Test User <test@example.com>" {
		t.Fatalf("whoami = %q, %v", out, err)
	}
	if _, err := runCLI(t, "", "whoami", "-C", dir, "--set", "Someone <s@example.com> extra"); !errors.Is(err, vcs.ErrMalformedIdentity) {
		t.Fatalf("whoami --set malformed: %v", err)
	}
}

func TestUnknownBackend(t *testing.T) {
	_, err := runCLI(t, "", "root", "-C", t.TempDir(), "--backend", "svn")
	if err == nil || !strings.Contains(err.Error(), "unknown backend") {
		t.Fatalf("err = %v", err)
	}
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "", "version")
	if err != nil || !strings.HasPrefix(out, "bevcs ") {
		t.Fatalf("version = %q, %v", out, err)
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{errors.New("boom"), ExitFailure},
		{fmt.Errorf("wrap: %w", vcs.ErrNotRooted), ExitNotInRoot},
		{&vcs.PathNotInRootError{Path: "/x", Root: "/r"}, ExitNotInRoot},
		{&vcs.NoSuchFileError{Path: "/r/x"}, ExitNoSuchFile},
		{vcs.ErrEmptyCommit, ExitEmptyCommit},
		{&invoke.CommandError{Args: []string{"hg", "st"}, Status: 255}, ExitCommand},
		{&config.Error{Path: "c.toml", Err: errors.New("bad")}, ExitConfig},
	}
	for _, tc := range cases {
		if got := ExitCode(tc.err); got != tc.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
