// Package gitbackend implements the git backend on top of go-git. The git
// binary is only consulted to report whether a client is installed.
package gitbackend

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"
	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	gitindex "github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/thiagokokada/bevcs/internal/invoke"
	"github.com/thiagokokada/bevcs/internal/vcs"
)

const (
	Name   = "git"
	client = "git"
)

// Minimum git client reported as installed. go-git does the actual work, so
// this only guards against ancient or broken binaries on PATH.
var minGitVersion = invoke.Version{Major: 2, Minor: 0}

type Backend struct {
	runner invoke.Runner
	root   string
	repo   *gitlib.Repository
	author string
}

func New(runner invoke.Runner) *Backend {
	return &Backend{runner: runner}
}

func (b *Backend) Name() string    { return Name }
func (b *Backend) Client() string  { return client }
func (b *Backend) Versioned() bool { return true }

func (b *Backend) Installed() vcs.Installation {
	v, err := invoke.Probe(b.runner, client, "git version", minGitVersion)
	if err != nil {
		slog.Debug("git probe", slog.Any("err", err))
	} else {
		slog.Debug("git probe", slog.String("version", v.String()))
	}
	return vcs.InstallationFromError(err)
}

func (b *Backend) open(path string) (*gitlib.Repository, error) {
	repo, err := gitlib.PlainOpenWithOptions(vcs.DirOf(path), &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return repo, nil
}

func (b *Backend) Detect(path string) bool {
	_, err := b.open(path)
	return err == nil
}

func (b *Backend) ResolveRoot(path string) (string, error) {
	repo, err := b.open(path)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", err
	}
	return wt.Filesystem.Root(), nil
}

func (b *Backend) Init(path string) error {
	_, err := gitlib.PlainInit(path, false)
	if err == gitlib.ErrRepositoryAlreadyExists {
		return nil
	}
	return err
}

func (b *Backend) Bind(root string) error {
	repo, err := gitlib.PlainOpen(root)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	b.root = root
	b.repo = repo
	return nil
}

func (b *Backend) Cleanup() error { return nil }

func (b *Backend) worktree() (*gitlib.Worktree, error) {
	if b.repo == nil {
		return nil, vcs.ErrNotRooted
	}
	return b.repo.Worktree()
}

// UserID reads user.name and user.email, merging repository, global and
// system configuration.
func (b *Backend) UserID() (string, error) {
	var (
		cfg *config.Config
		err error
	)
	if b.repo != nil {
		cfg, err = b.repo.ConfigScoped(config.SystemScope)
	} else {
		cfg, err = config.LoadConfig(config.GlobalScope)
	}
	if err != nil {
		return "", fmt.Errorf("read git config: %w", err)
	}
	if cfg.User.Name == "" {
		return "", nil
	}
	return vcs.FormatIdentity(cfg.User.Name, cfg.User.Email), nil
}

// SetUserID stores the identity in the repository configuration.
func (b *Backend) SetUserID(id string) error {
	if b.repo == nil {
		return vcs.ErrNotRooted
	}
	name, email, err := vcs.ParseIdentity(id)
	if err != nil {
		return err
	}
	cfg, err := b.repo.Config()
	if err != nil {
		return err
	}
	cfg.User.Name = name
	cfg.User.Email = email
	return b.repo.SetConfig(cfg)
}

func (b *Backend) SetCommitAuthor(id string) { b.author = id }

func (b *Backend) isDir(rel string) bool {
	info, err := os.Stat(filepath.Join(b.root, rel))
	return err == nil && info.IsDir()
}

// Add stages a file. git tracks no directories, so those are skipped.
func (b *Backend) Add(rel string) error {
	wt, err := b.worktree()
	if err != nil {
		return err
	}
	if b.isDir(rel) {
		return nil
	}
	_, err = wt.Add(filepath.ToSlash(rel))
	return err
}

// Update restages a modified file.
func (b *Backend) Update(rel string) error {
	return b.Add(rel)
}

// Remove drops a file from the index and the working tree. Untracked files
// are not an error.
func (b *Backend) Remove(rel string) error {
	wt, err := b.worktree()
	if err != nil {
		return err
	}
	if b.isDir(rel) {
		return nil
	}
	_, err = wt.Remove(filepath.ToSlash(rel))
	if errors.Is(err, gitindex.ErrEntryNotFound) {
		return nil
	}
	return err
}

func (b *Backend) commitAt(rev vcs.Revision) (*object.Commit, error) {
	if b.repo == nil {
		return nil, vcs.ErrNotRooted
	}
	hash, err := b.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("resolve revision %q: %w", rev, err)
	}
	return b.repo.CommitObject(*hash)
}

func (b *Backend) FileContents(rel string, rev vcs.Revision) ([]byte, error) {
	if rev == vcs.NoRevision {
		path, err := securejoin.SecureJoin(b.root, rel)
		if err != nil {
			return nil, err
		}
		return os.ReadFile(path)
	}
	commit, err := b.commitAt(rev)
	if err != nil {
		return nil, err
	}
	f, err := commit.File(filepath.ToSlash(rel))
	if err == object.ErrFileNotFound {
		return nil, &vcs.NoSuchFileError{Path: rel}
	}
	if err != nil {
		return nil, err
	}
	r, err := f.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// DuplicateRepo copies the working tree, or checks the files of rev out into
// dir without touching the repository.
func (b *Backend) DuplicateRepo(dir string, rev vcs.Revision) error {
	if rev == vcs.NoRevision {
		return vcs.CopyTree(b.root, dir)
	}
	commit, err := b.commitAt(rev)
	if err != nil {
		return err
	}
	files, err := commit.Files()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return files.ForEach(func(f *object.File) error {
		dst, err := securejoin.SecureJoin(dir, f.Name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if f.Mode == filemode.Symlink {
			target, err := f.Contents()
			if err != nil {
				return err
			}
			return os.Symlink(target, dst)
		}
		perm := os.FileMode(0o644)
		if f.Mode == filemode.Executable {
			perm = 0o755
		}
		return writeBlob(f, dst, perm)
	})
}

func writeBlob(f *object.File, dst string, perm os.FileMode) error {
	r, err := f.Reader()
	if err != nil {
		return err
	}
	defer r.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// hasChanges mirrors "git commit -a": staged changes plus modified or deleted
// tracked files count, untracked files do not.
func hasChanges(status gitlib.Status) bool {
	for _, st := range status {
		if st.Staging != gitlib.Unmodified && st.Staging != gitlib.Untracked {
			return true
		}
		if st.Worktree == gitlib.Modified || st.Worktree == gitlib.Deleted {
			return true
		}
	}
	return false
}

func (b *Backend) signature() (*object.Signature, error) {
	id := b.author
	if id == "" {
		var err error
		if id, err = b.UserID(); err != nil {
			return nil, err
		}
	}
	if id == "" {
		return nil, errors.New("no commit author configured")
	}
	name, email, err := vcs.ParseIdentity(id)
	if err != nil {
		return nil, err
	}
	return &object.Signature{Name: name, Email: email, When: time.Now()}, nil
}

func (b *Backend) Commit(commitFile string, allowEmpty bool) (vcs.Revision, error) {
	wt, err := b.worktree()
	if err != nil {
		return vcs.NoRevision, err
	}
	if !allowEmpty {
		status, err := wt.Status()
		if err != nil {
			return vcs.NoRevision, err
		}
		if !hasChanges(status) {
			return vcs.NoRevision, vcs.ErrEmptyCommit
		}
	}
	summary, body, err := vcs.ParseCommitFile(commitFile)
	if err != nil {
		return vcs.NoRevision, err
	}
	sig, err := b.signature()
	if err != nil {
		return vcs.NoRevision, err
	}
	hash, err := wt.Commit(vcs.FormatCommitMessage(summary, body), &gitlib.CommitOptions{
		All:               true,
		AllowEmptyCommits: true,
		Author:            sig,
		Committer:         sig,
	})
	if err != nil {
		return vcs.NoRevision, err
	}
	return vcs.Revision(hash.String()), nil
}

// history returns the first-parent chain from the root commit to HEAD.
func (b *Backend) history() ([]plumbing.Hash, error) {
	if b.repo == nil {
		return nil, vcs.ErrNotRooted
	}
	ref, err := b.repo.Head()
	if err != nil {
		if err == plumbing.ErrReferenceNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	commit, err := b.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, err
	}
	var chain []plumbing.Hash
	for {
		chain = append(chain, commit.Hash)
		if commit.NumParents() == 0 {
			break
		}
		if commit, err = commit.Parent(0); err != nil {
			return nil, err
		}
	}
	slices.Reverse(chain)
	return chain, nil
}

func (b *Backend) RevisionID(index int) (vcs.Revision, error) {
	chain, err := b.history()
	if err != nil {
		return vcs.NoRevision, err
	}
	i, ok := vcs.NormalizeIndex(index, len(chain))
	if !ok {
		return vcs.NoRevision, nil
	}
	return vcs.Revision(chain[i].String()), nil
}
