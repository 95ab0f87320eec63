package vcs

import (
	"os"
	"path/filepath"
)

// fakeBackend records registration calls and defers to Null for everything
// it does not override.
type fakeBackend struct {
	*Null

	name      string
	versioned bool
	installed Installation
	detectIn  string

	userID       string
	setUserIDErr error
	commitFunc   func(commitFile string, allowEmpty bool) (Revision, error)
	contentsFunc func(rel string, rev Revision) ([]byte, error)

	calls      []string
	setIDs     []string
	author     string
	cleanups   int
	hookCalls  []string
	lastCommit string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{Null: NewNull(), name: "fake", versioned: true, installed: InstallOK}
}

func (f *fakeBackend) Name() string            { return f.name }
func (f *fakeBackend) Versioned() bool         { return f.versioned }
func (f *fakeBackend) Installed() Installation { return f.installed }

func (f *fakeBackend) Detect(path string) bool {
	if f.detectIn == "" {
		return false
	}
	return path == f.detectIn || PathInRoot(path, f.detectIn)
}

func (f *fakeBackend) Cleanup() error {
	f.cleanups++
	return nil
}

func (f *fakeBackend) UserID() (string, error) { return f.userID, nil }

func (f *fakeBackend) SetUserID(id string) error {
	if f.setUserIDErr != nil {
		return f.setUserIDErr
	}
	f.setIDs = append(f.setIDs, id)
	f.userID = id
	return nil
}

func (f *fakeBackend) SetCommitAuthor(id string) { f.author = id }

func (f *fakeBackend) Add(rel string) error {
	f.calls = append(f.calls, "add "+filepath.ToSlash(rel))
	return nil
}

func (f *fakeBackend) Remove(rel string) error {
	f.calls = append(f.calls, "remove "+filepath.ToSlash(rel))
	return nil
}

func (f *fakeBackend) Update(rel string) error {
	f.calls = append(f.calls, "update "+filepath.ToSlash(rel))
	return nil
}

func (f *fakeBackend) FileContents(rel string, rev Revision) ([]byte, error) {
	if f.contentsFunc != nil {
		return f.contentsFunc(rel, rev)
	}
	return f.Null.FileContents(rel, NoRevision)
}

func (f *fakeBackend) Commit(commitFile string, allowEmpty bool) (Revision, error) {
	data, err := os.ReadFile(commitFile)
	if err != nil {
		return NoRevision, err
	}
	f.lastCommit = string(data)
	if f.commitFunc != nil {
		return f.commitFunc(commitFile, allowEmpty)
	}
	return "rev-1", nil
}

func (f *fakeBackend) Precommit(dir string) error {
	f.hookCalls = append(f.hookCalls, "pre "+dir)
	return nil
}

func (f *fakeBackend) Postcommit(dir string) error {
	f.hookCalls = append(f.hookCalls, "post "+dir)
	return nil
}
