package vcs

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	securejoin "github.com/cyphar/filepath-securejoin"
)

type snapshot struct {
	base   string // temporary directory owning the snapshot
	dir    string
	rev    Revision
	digest uint64
}

// DuplicateRepo materializes the tree as of rev in a fresh temporary
// directory and returns its path. While a duplicate exists, further calls
// return the same path.
func (a *Adapter) DuplicateRepo(rev Revision) (string, error) {
	if a.snapshot != nil {
		return a.snapshot.dir, nil
	}
	if a.root == "" {
		return "", ErrNotRooted
	}
	base, err := os.MkdirTemp("", "bevcs-dup-")
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "duplicate")
	if err := a.backend.DuplicateRepo(dir, rev); err != nil {
		os.RemoveAll(base)
		return "", fmt.Errorf("%s duplicate at %q: %w", a.backend.Name(), rev, err)
	}
	digest, err := treeDigest(dir)
	if err != nil {
		os.RemoveAll(base)
		return "", err
	}
	a.snapshot = &snapshot{base: base, dir: dir, rev: rev, digest: digest}
	a.logger.Debug("duplicated repository", slog.String("dir", dir), slog.String("revision", rev.String()))
	return dir, nil
}

// DuplicateDir returns the current duplicate, or "" when there is none.
func (a *Adapter) DuplicateDir() string {
	if a.snapshot == nil {
		return ""
	}
	return a.snapshot.dir
}

// RemoveDuplicateRepo deletes the duplicate. It is a no-op without one.
func (a *Adapter) RemoveDuplicateRepo() error {
	if a.snapshot == nil {
		return nil
	}
	base := a.snapshot.base
	a.snapshot = nil
	return os.RemoveAll(base)
}

// VerifyDuplicateRepo reports ErrSnapshotModified when anything under the
// duplicate changed since it was made.
func (a *Adapter) VerifyDuplicateRepo() error {
	if a.snapshot == nil {
		return ErrNoSnapshot
	}
	digest, err := treeDigest(a.snapshot.dir)
	if err != nil {
		return err
	}
	if digest != a.snapshot.digest {
		return fmt.Errorf("%w: %s", ErrSnapshotModified, a.snapshot.dir)
	}
	return nil
}

// SnapshotPath joins rel onto the duplicate without letting it escape.
func (a *Adapter) SnapshotPath(rel string) (string, error) {
	if a.snapshot == nil {
		return "", ErrNoSnapshot
	}
	return securejoin.SecureJoin(a.snapshot.dir, rel)
}
