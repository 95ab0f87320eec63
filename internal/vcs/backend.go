// Package vcs presents one contract over heterogeneous version-control
// backends.
//
// A Backend implements the version-control specific half (detection, root
// resolution, registration of files, commits, historical reads). An Adapter
// wraps a Backend, binds it to a root directory and enforces that every path it
// is handed stays inside that root. Backends that track no history (the null
// backend) turn every operation into plain filesystem I/O.
package vcs

import (
	"github.com/thiagokokada/bevcs/internal/invoke"
)

// Revision is an opaque handle returned by a commit. Only equality and the
// backend's own indexing are meaningful.
type Revision string

// NoRevision means "no specific revision": the current tree for reads, and the
// handle every history-less backend returns.
const NoRevision Revision = ""

func (r Revision) String() string {
	return string(r)
}

// Installation is the result of probing a backend's client program.
type Installation uint8

const (
	InstallMissing Installation = iota
	InstallOK
	// InstallBroken means the client exists but the probe command failed.
	InstallBroken
)

func (i Installation) String() string {
	switch i {
	case InstallOK:
		return "installed"
	case InstallBroken:
		return "installed (broken)"
	default:
		return "not installed"
	}
}

// Present reports whether the client program exists, healthy or not.
func (i Installation) Present() bool {
	return i != InstallMissing
}

// InstallationFromError classifies the error of a harmless probe command.
func InstallationFromError(err error) Installation {
	switch {
	case err == nil:
		return InstallOK
	case invoke.IsNotFound(err):
		return InstallMissing
	default:
		return InstallBroken
	}
}

// Backend is the contract every version-control backend implements.
//
// Paths handed to Add, Remove, Update, FileContents are relative to the root
// passed to Bind. The Adapter guarantees they never escape it.
type Backend interface {
	// Name is the declared backend name ("None", "git", "hg").
	Name() string
	// Client is the command-line program the backend drives, if any.
	Client() string
	// Versioned reports whether the backend tracks history.
	Versioned() bool
	Installed() Installation

	// Detect reports whether path is already under this backend's control.
	Detect(path string) bool
	// ResolveRoot returns the backend root containing path.
	ResolveRoot(path string) (string, error)
	// Init starts versioning the tree at path.
	Init(path string) error
	// Bind tells the backend which root later calls are relative to.
	Bind(root string) error
	// Cleanup removes anything Init created outside of the versioned tree.
	Cleanup() error

	// UserID returns the configured identity, or "" when none is configured.
	UserID() (string, error)
	SetUserID(id string) error

	Add(rel string) error
	Remove(rel string) error
	Update(rel string) error
	FileContents(rel string, rev Revision) ([]byte, error)
	// DuplicateRepo materializes the tree as of rev into dir, which must not
	// exist yet.
	DuplicateRepo(dir string, rev Revision) error
	// Commit records pending changes using the message stored in commitFile.
	// It returns ErrEmptyCommit when nothing is pending and allowEmpty is false.
	Commit(commitFile string, allowEmpty bool) (Revision, error)
	// RevisionID returns the handle at a slice-style index over the commit
	// sequence, or NoRevision when out of range or unsupported.
	RevisionID(index int) (Revision, error)
}

// CommitHooks is implemented by backends that need staging or cleanup side
// effects around the commit boundary.
type CommitHooks interface {
	Precommit(dir string) error
	Postcommit(dir string) error
}

// CommitAuthor is implemented by backends that record an author per commit.
type CommitAuthor interface {
	SetCommitAuthor(id string)
}
