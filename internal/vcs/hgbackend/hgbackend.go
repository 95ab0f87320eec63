// Package hgbackend drives the Mercurial command-line client.
package hgbackend

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/thiagokokada/bevcs/internal/invoke"
	"github.com/thiagokokada/bevcs/internal/vcs"
)

const (
	Name   = "hg"
	client = "hg"
)

var minHgVersion = invoke.Version{Major: 4, Minor: 0}

type Backend struct {
	runner invoke.Runner
	root   string
	author string
}

func New(runner invoke.Runner) *Backend {
	return &Backend{runner: runner}
}

func (b *Backend) Name() string    { return Name }
func (b *Backend) Client() string  { return client }
func (b *Backend) Versioned() bool { return true }
func (b *Backend) Cleanup() error  { return nil }

func (b *Backend) run(dir string, expect []int, args ...string) (invoke.Result, error) {
	return b.runner.Run(append([]string{client}, args...), invoke.RunOptions{Dir: dir, Expect: expect})
}

func (b *Backend) Installed() vcs.Installation {
	v, err := invoke.Probe(b.runner, client, "(version", minHgVersion)
	if err != nil {
		slog.Debug("hg probe", slog.Any("err", err))
	} else {
		slog.Debug("hg probe", slog.String("version", v.String()))
	}
	return vcs.InstallationFromError(err)
}

func (b *Backend) Detect(path string) bool {
	return vcs.SearchParents(vcs.DirOf(path), ".hg") != ""
}

func (b *Backend) ResolveRoot(path string) (string, error) {
	res, err := b.run(vcs.DirOf(path), nil, "root")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

func (b *Backend) Init(path string) error {
	_, err := b.run(path, nil, "init")
	return err
}

func (b *Backend) Bind(root string) error {
	b.root = root
	return nil
}

// UserID reads ui.username. hg exits 1 when the key is unset.
func (b *Backend) UserID() (string, error) {
	dir := b.root
	if dir == "" {
		dir = "."
	}
	res, err := b.run(dir, []int{0, 1}, "showconfig", "ui.username")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// SetUserID is unsupported: hg keeps identities in hgrc files it never
// rewrites itself.
func (b *Backend) SetUserID(string) error {
	return vcs.ErrSettingIDNotSupported
}

func (b *Backend) SetCommitAuthor(id string) { b.author = id }

func (b *Backend) requireRoot() error {
	if b.root == "" {
		return vcs.ErrNotRooted
	}
	return nil
}

func (b *Backend) isDir(rel string) bool {
	info, err := os.Stat(filepath.Join(b.root, rel))
	return err == nil && info.IsDir()
}

// Add registers a file. hg tracks no directories.
func (b *Backend) Add(rel string) error {
	if err := b.requireRoot(); err != nil {
		return err
	}
	if b.isDir(rel) {
		return nil
	}
	_, err := b.run(b.root, nil, "add", "--", rel)
	return err
}

func (b *Backend) Remove(rel string) error {
	if err := b.requireRoot(); err != nil {
		return err
	}
	if b.isDir(rel) {
		return nil
	}
	// Exit 1 means the file was not tracked; the adapter deletes it anyway.
	_, err := b.run(b.root, []int{0, 1}, "rm", "--force", "--", rel)
	return err
}

// Update is a no-op: hg notices modifications on its own.
func (b *Backend) Update(string) error {
	return b.requireRoot()
}

func (b *Backend) FileContents(rel string, rev vcs.Revision) ([]byte, error) {
	if err := b.requireRoot(); err != nil {
		return nil, err
	}
	if rev == vcs.NoRevision {
		path, err := securejoin.SecureJoin(b.root, rel)
		if err != nil {
			return nil, err
		}
		return os.ReadFile(path)
	}
	res, err := b.run(b.root, nil, "cat", "-r", rev.String(), "--", rel)
	if err != nil {
		return nil, err
	}
	return []byte(res.Stdout), nil
}

func (b *Backend) DuplicateRepo(dir string, rev vcs.Revision) error {
	if err := b.requireRoot(); err != nil {
		return err
	}
	if rev == vcs.NoRevision {
		return vcs.CopyTree(b.root, dir)
	}
	_, err := b.run(b.root, nil, "archive", "--type", "files", "--no-decode", "-r", rev.String(), dir)
	return err
}

// Commit runs "hg commit --logfile". hg exits 1 when nothing changed and
// cannot record empty commits, so allowEmpty yields the current tip instead.
func (b *Backend) Commit(commitFile string, allowEmpty bool) (vcs.Revision, error) {
	if err := b.requireRoot(); err != nil {
		return vcs.NoRevision, err
	}
	args := []string{"commit", "--logfile", commitFile}
	if b.author != "" {
		args = append(args, "--user", b.author)
	}
	res, err := b.run(b.root, []int{0, 1}, args...)
	if err != nil {
		return vcs.NoRevision, err
	}
	empty := res.Status == 1 || strings.Contains(res.Stdout, "nothing changed")
	if empty && !allowEmpty {
		return vcs.NoRevision, vcs.ErrEmptyCommit
	}
	return b.RevisionID(-1)
}

// count returns the number of commits. The tip of an empty repository is the
// null revision -1.
func (b *Backend) count() (int, error) {
	res, err := b.run(b.root, nil, "log", "-r", "tip", "--template", "{rev}")
	if err != nil {
		return 0, err
	}
	tip, err := strconv.Atoi(strings.TrimSpace(res.Stdout))
	if err != nil {
		return 0, fmt.Errorf("parse hg tip %q: %w", res.Stdout, err)
	}
	return tip + 1, nil
}

func (b *Backend) RevisionID(index int) (vcs.Revision, error) {
	if err := b.requireRoot(); err != nil {
		return vcs.NoRevision, err
	}
	n, err := b.count()
	if err != nil {
		return vcs.NoRevision, err
	}
	i, ok := vcs.NormalizeIndex(index, n)
	if !ok {
		return vcs.NoRevision, nil
	}
	res, err := b.run(b.root, nil, "log", "-r", strconv.Itoa(i), "--template", "{node}")
	if err != nil {
		return vcs.NoRevision, err
	}
	return vcs.Revision(strings.TrimSpace(res.Stdout)), nil
}
