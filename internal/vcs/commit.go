package vcs

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

type CommitOptions struct {
	// Body is appended after a blank line. Empty means no body.
	Body string
	// AllowEmpty records a commit even when nothing changed.
	AllowEmpty bool
}

// FormatCommitMessage renders the text handed to the backend: the trimmed
// summary and, when present, a blank line and the trimmed body.
func FormatCommitMessage(summary, body string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(summary))
	b.WriteByte('\n')
	if body != "" {
		b.WriteByte('\n')
		b.WriteString(strings.TrimSpace(body))
		b.WriteByte('\n')
	}
	return b.String()
}

// ParseCommitFile splits a message file into its summary line and the
// remaining body, with surrounding blank lines removed.
func ParseCommitFile(path string) (summary, body string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	summary, rest, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(summary), strings.Trim(rest, "\n"), nil
}

// Commit writes the message to a scratch file, hands it to the backend and
// returns the new revision. The scratch file is removed on every path.
func (a *Adapter) Commit(summary string, opts CommitOptions) (Revision, error) {
	if a.backend.Versioned() {
		id, err := a.UserID()
		if err != nil {
			return NoRevision, fmt.Errorf("commit: resolve author: %w", err)
		}
		if ca, ok := a.backend.(CommitAuthor); ok {
			ca.SetCommitAuthor(id)
		}
	}
	f, err := os.CreateTemp("", "bevcs-commit-*")
	if err != nil {
		return NoRevision, err
	}
	name := f.Name()
	defer os.Remove(name)

	_, err = f.WriteString(FormatCommitMessage(summary, opts.Body))
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return NoRevision, fmt.Errorf("write commit message: %w", err)
	}

	rev, err := a.backend.Commit(name, opts.AllowEmpty)
	if err != nil {
		if errors.Is(err, ErrEmptyCommit) {
			return NoRevision, err
		}
		return NoRevision, fmt.Errorf("%s commit: %w", a.backend.Name(), err)
	}
	a.logger.Debug("committed",
		slog.String("backend", a.backend.Name()),
		slog.String("revision", rev.String()),
	)
	return rev, nil
}

// Precommit runs the backend hook, if it has one, with dir as the tracked
// directory.
func (a *Adapter) Precommit(dir string) error {
	if h, ok := a.backend.(CommitHooks); ok {
		return h.Precommit(dir)
	}
	return nil
}

// Postcommit is the counterpart of Precommit.
func (a *Adapter) Postcommit(dir string) error {
	if h, ok := a.backend.(CommitHooks); ok {
		return h.Postcommit(dir)
	}
	return nil
}
