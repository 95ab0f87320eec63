// Package backends assembles the registry of known version-control backends.
package backends

import (
	"fmt"
	"strings"

	"github.com/thiagokokada/bevcs/internal/invoke"
	"github.com/thiagokokada/bevcs/internal/vcs"
	"github.com/thiagokokada/bevcs/internal/vcs/gitbackend"
	"github.com/thiagokokada/bevcs/internal/vcs/hgbackend"
)

// Default returns git then hg, falling back to the null backend.
func Default(runner invoke.Runner) *vcs.Registry {
	return vcs.NewRegistry(
		func() vcs.Backend { return gitbackend.New(runner) },
		func() vcs.Backend { return hgbackend.New(runner) },
	)
}

// Choose picks a backend for dir: the named one when name is set, otherwise
// the first backend already controlling dir. An unknown name is an error
// rather than a silent fallback.
func Choose(reg *vcs.Registry, name, dir string) (vcs.Backend, error) {
	if name == "" {
		return reg.Detect(dir), nil
	}
	b := reg.ByName(name)
	if b.Name() == vcs.NullName && !strings.EqualFold(name, vcs.NullName) {
		return nil, fmt.Errorf("unknown backend %q (known: %s)", name, strings.Join(reg.Names(), ", "))
	}
	return b, nil
}

// Open chooses a backend and wraps it in an adapter rooted at dir. Null
// adapters are rooted too, so plain-file trees still get containment checks.
func Open(reg *vcs.Registry, name, dir string, opts ...vcs.Option) (*vcs.Adapter, error) {
	b, err := Choose(reg, name, dir)
	if err != nil {
		return nil, err
	}
	a, err := vcs.New(b, opts...)
	if err != nil {
		return nil, err
	}
	if err := a.Root(dir); err != nil {
		return nil, err
	}
	return a, nil
}
