package vcs

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
)

// Adapter binds a Backend to a root directory and routes every file operation
// either through the backend or straight to the filesystem.
type Adapter struct {
	backend  Backend
	root     string
	encLabel string
	enc      encoding.Encoding
	paranoid bool
	userID   string
	logger   *slog.Logger

	snapshot *snapshot
}

type Option func(*Adapter)

// WithEncoding selects the text encoding used by ReadText and WriteText.
func WithEncoding(label string) Option {
	return func(a *Adapter) { a.encLabel = label }
}

// WithParanoid additionally resolves symlinks before checking that a path is
// inside the root.
func WithParanoid(paranoid bool) Option {
	return func(a *Adapter) { a.paranoid = paranoid }
}

// WithUserID overrides whatever identity the backend reports.
func WithUserID(id string) Option {
	return func(a *Adapter) { a.userID = id }
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) { a.logger = logger }
}

func New(backend Backend, opts ...Option) (*Adapter, error) {
	a := &Adapter{backend: backend, encLabel: DefaultEncoding}
	for _, opt := range opts {
		opt(a)
	}
	enc, err := lookupEncoding(a.encLabel)
	if err != nil {
		return nil, err
	}
	a.enc = enc
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a, nil
}

func (a *Adapter) Backend() Backend { return a.backend }
func (a *Adapter) Name() string     { return a.backend.Name() }
func (a *Adapter) Encoding() string { return a.encLabel }

// RootDir returns the bound root, or "" before Root succeeds.
func (a *Adapter) RootDir() string { return a.root }

// Rooted reports whether the adapter has been bound to a root.
func (a *Adapter) Rooted() bool { return a.root != "" }

// Root asks the backend for the root containing path and binds to it.
func (a *Adapter) Root(path string) error {
	if a.root != "" {
		return fmt.Errorf("root %s: %w at %s", path, ErrAlreadyRooted, a.root)
	}
	root, err := a.backend.ResolveRoot(path)
	if err != nil {
		return fmt.Errorf("resolve %s root for %s: %w", a.backend.Name(), path, err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	if err := a.backend.Bind(abs); err != nil {
		return fmt.Errorf("bind %s root %s: %w", a.backend.Name(), abs, err)
	}
	a.root = abs
	a.logger.Debug("vcs rooted", slog.String("backend", a.backend.Name()), slog.String("root", abs))
	return nil
}

// Init starts versioning at path (or at its directory when path is a file)
// and then binds to the resulting root.
func (a *Adapter) Init(path string) error {
	dir := DirOf(path)
	if err := a.backend.Init(dir); err != nil {
		return fmt.Errorf("init %s in %s: %w", a.backend.Name(), dir, err)
	}
	return a.Root(dir)
}

// Close removes any duplicate snapshot and lets the backend clean up.
func (a *Adapter) Close() error {
	return errors.Join(a.RemoveDuplicateRepo(), a.backend.Cleanup())
}

// PathInRoot reports whether path is strictly inside the bound root.
func (a *Adapter) PathInRoot(path string) (bool, error) {
	if a.root == "" {
		return false, ErrNotRooted
	}
	if !PathInRoot(path, a.root) {
		return false, nil
	}
	if !a.paranoid {
		return true, nil
	}
	resolved, err := resolveSymlinks(path)
	if err != nil {
		return false, err
	}
	root, err := filepath.EvalSymlinks(a.root)
	if err != nil {
		return false, err
	}
	return PathInRoot(resolved, root), nil
}

// useBackend decides whether an operation on path goes through the backend.
// When allowNoVCS is set, being unrooted or outside the root silently falls
// back to the filesystem.
func (a *Adapter) useBackend(path string, allowNoVCS bool) (bool, error) {
	var cause error
	if a.root == "" {
		cause = ErrNotRooted
	} else {
		in, err := a.PathInRoot(path)
		if err != nil {
			return false, err
		}
		if !in {
			cause = &PathNotInRootError{Path: path, Root: a.root}
		}
	}
	if cause == nil {
		return true, nil
	}
	if allowNoVCS {
		return false, nil
	}
	return false, cause
}

func (a *Adapter) relPath(path string) (string, error) {
	if a.root == "" {
		return "", ErrNotRooted
	}
	in, err := a.PathInRoot(path)
	if err != nil {
		return "", err
	}
	if !in {
		return "", &PathNotInRootError{Path: path, Root: a.root}
	}
	return RelPath(path, a.root)
}

// Add registers an existing path with the backend.
func (a *Adapter) Add(path string) error {
	rel, err := a.relPath(path)
	if err != nil {
		return err
	}
	return a.backend.Add(rel)
}

// Update tells the backend that a registered path changed.
func (a *Adapter) Update(path string) error {
	rel, err := a.relPath(path)
	if err != nil {
		return err
	}
	return a.backend.Update(rel)
}

// Remove unregisters path and deletes it from disk if it is still there.
func (a *Adapter) Remove(path string) error {
	rel, err := a.relPath(path)
	if err != nil {
		return err
	}
	if err := a.backend.Remove(rel); err != nil {
		return fmt.Errorf("%s remove %s: %w", a.backend.Name(), rel, err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// RecursiveRemove unregisters everything below dir, deepest entries first,
// and then deletes the whole tree.
func (a *Adapter) RecursiveRemove(dir string) error {
	if !exists(dir) {
		return &NoSuchFileError{Path: dir}
	}
	var entries []string
	err := filepath.WalkDir(dir, func(path string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir {
			entries = append(entries, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		path := entries[i]
		if !exists(path) {
			continue
		}
		rel, err := a.relPath(path)
		if err != nil {
			return err
		}
		if err := a.backend.Remove(rel); err != nil {
			return fmt.Errorf("%s remove %s: %w", a.backend.Name(), rel, err)
		}
	}
	return os.RemoveAll(dir)
}

type ReadOptions struct {
	// Revision selects a historical version. NoRevision reads the current one.
	Revision Revision
	// AllowNoVCS reads from the filesystem instead of failing when unrooted or
	// outside the root.
	AllowNoVCS bool
}

// ReadFile returns the raw bytes of path.
func (a *Adapter) ReadFile(path string, opts ReadOptions) ([]byte, error) {
	if !exists(path) {
		return nil, &NoSuchFileError{Path: path}
	}
	use, err := a.useBackend(path, opts.AllowNoVCS)
	if err != nil {
		return nil, err
	}
	if !use {
		return os.ReadFile(path)
	}
	rel, err := RelPath(path, a.root)
	if err != nil {
		return nil, err
	}
	data, err := a.backend.FileContents(rel, opts.Revision)
	if err != nil {
		return nil, fmt.Errorf("%s contents of %s: %w", a.backend.Name(), rel, err)
	}
	return data, nil
}

// ReadText returns path decoded with the adapter's encoding.
func (a *Adapter) ReadText(path string, opts ReadOptions) (string, error) {
	data, err := a.ReadFile(path, opts)
	if err != nil {
		return "", err
	}
	return a.decode(data)
}

type WriteOptions struct {
	AllowNoVCS bool
}

// WriteFile writes data to path and registers it: new files are added,
// existing ones updated.
func (a *Adapter) WriteFile(path string, data []byte, opts WriteOptions) error {
	use, err := a.useBackend(path, opts.AllowNoVCS)
	if err != nil {
		return err
	}
	created := !exists(path)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	if !use {
		return nil
	}
	if created {
		return a.Add(path)
	}
	return a.Update(path)
}

// WriteText encodes text with the adapter's encoding and writes it.
func (a *Adapter) WriteText(path, text string, opts WriteOptions) error {
	data, err := a.encode(text)
	if err != nil {
		return err
	}
	return a.WriteFile(path, data, opts)
}

type MkdirOptions struct {
	AllowNoVCS bool
	// CheckParents creates missing parents first, each registered in turn.
	CheckParents bool
}

var DefaultMkdirOptions = MkdirOptions{CheckParents: true}

// Mkdir creates path and registers it. Existing directories are left alone.
func (a *Adapter) Mkdir(path string, opts MkdirOptions) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if opts.CheckParents {
		parent := filepath.Dir(abs)
		if parent != abs && !exists(parent) {
			if err := a.Mkdir(parent, opts); err != nil {
				return err
			}
		}
	}
	use, err := a.useBackend(abs, opts.AllowNoVCS)
	if err != nil {
		return err
	}
	if exists(abs) {
		if !isDir(abs) {
			return fmt.Errorf("mkdir %s: %w", abs, fs.ErrExist)
		}
		return nil
	}
	if err := os.Mkdir(abs, 0o755); err != nil {
		return err
	}
	if use {
		return a.Add(abs)
	}
	return nil
}

func (a *Adapter) decode(data []byte) (string, error) {
	out, err := a.enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", a.encLabel, err)
	}
	return string(out), nil
}

func (a *Adapter) encode(text string) ([]byte, error) {
	out, err := a.enc.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", a.encLabel, err)
	}
	return out, nil
}

func (a *Adapter) String() string {
	if a.root == "" {
		return fmt.Sprintf("<%s unrooted>", a.backend.Name())
	}
	return fmt.Sprintf("<%s %s>", a.backend.Name(), strings.TrimSuffix(a.root, string(filepath.Separator)))
}
