package vcs

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	ErrNotRooted             = errors.New("vcs not rooted")
	ErrAlreadyRooted         = errors.New("vcs already rooted")
	ErrEmptyCommit           = errors.New("no changes to commit")
	ErrSettingIDNotSupported = errors.New("setting the user id is not supported")
	ErrMalformedIdentity     = errors.New("malformed identity")
	ErrRevisionUnsupported   = errors.New("revision specifiers are not supported")
	ErrNoSnapshot            = errors.New("no duplicate repository")
	ErrSnapshotModified      = errors.New("duplicate repository was modified")
)

type PathNotInRootError struct {
	Path string
	Root string
}

func (e *PathNotInRootError) Error() string {
	return fmt.Sprintf("path %q not in root %q", e.Path, e.Root)
}

type NoSuchFileError struct {
	Path string
}

func (e *NoSuchFileError) Error() string {
	return fmt.Sprintf("no such file: %s", e.Path)
}

// Is lets callers match a missing file with fs.ErrNotExist.
func (e *NoSuchFileError) Is(target error) bool {
	return target == fs.ErrNotExist
}
