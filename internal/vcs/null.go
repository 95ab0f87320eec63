package vcs

import (
	"os"

	securejoin "github.com/cyphar/filepath-securejoin"
)

const NullName = "None"

// Null is the backend used when no version control is wanted or available.
// Registration calls do nothing and reads always hit the working tree.
type Null struct {
	root string
}

func NewNull() *Null {
	return &Null{}
}

func (*Null) Name() string            { return NullName }
func (*Null) Client() string          { return "" }
func (*Null) Versioned() bool         { return false }
func (*Null) Installed() Installation { return InstallOK }
func (*Null) Detect(string) bool      { return false }
func (*Null) Init(string) error       { return nil }
func (*Null) Cleanup() error          { return nil }

func (*Null) ResolveRoot(path string) (string, error) {
	return DirOf(path), nil
}

func (n *Null) Bind(root string) error {
	n.root = root
	return nil
}

func (*Null) UserID() (string, error) { return "", nil }
func (*Null) SetUserID(string) error  { return ErrSettingIDNotSupported }
func (*Null) Add(string) error        { return nil }
func (*Null) Remove(string) error     { return nil }
func (*Null) Update(string) error     { return nil }
func (*Null) Precommit(string) error  { return nil }
func (*Null) Postcommit(string) error { return nil }

func (n *Null) FileContents(rel string, rev Revision) ([]byte, error) {
	if rev != NoRevision {
		return nil, ErrRevisionUnsupported
	}
	path, err := securejoin.SecureJoin(n.root, rel)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func (n *Null) DuplicateRepo(dir string, rev Revision) error {
	if rev != NoRevision {
		return ErrRevisionUnsupported
	}
	return CopyTree(n.root, dir)
}

func (*Null) Commit(string, bool) (Revision, error) {
	return NoRevision, nil
}

func (*Null) RevisionID(int) (Revision, error) {
	return NoRevision, nil
}
