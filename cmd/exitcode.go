package cmd

import (
	"errors"

	"github.com/thiagokokada/bevcs/internal/config"
	"github.com/thiagokokada/bevcs/internal/invoke"
	"github.com/thiagokokada/bevcs/internal/vcs"
)

const (
	ExitOK = iota
	ExitFailure
	ExitNotInRoot
	ExitNoSuchFile
	ExitEmptyCommit
	ExitCommand
	ExitConfig
)

// ExitCode maps an error returned by Run to the process exit status.
func ExitCode(err error) int {
	var (
		notInRoot *vcs.PathNotInRootError
		noFile    *vcs.NoSuchFileError
		cmdErr    *invoke.CommandError
		cfgErr    *config.Error
	)
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, vcs.ErrNotRooted), errors.As(err, &notInRoot):
		return ExitNotInRoot
	case errors.As(err, &noFile):
		return ExitNoSuchFile
	case errors.Is(err, vcs.ErrEmptyCommit):
		return ExitEmptyCommit
	case errors.As(err, &cmdErr):
		return ExitCommand
	case errors.As(err, &cfgErr):
		return ExitConfig
	default:
		return ExitFailure
	}
}
