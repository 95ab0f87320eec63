package vcs

import (
	"log/slog"
	"strings"
)

// Factory builds a fresh, unbound backend instance.
type Factory func() Backend

// Predicate decides whether a candidate backend is acceptable.
type Predicate func(Backend) bool

// Registry is an ordered list of backend factories. Selection tries them in
// order and falls back to the null backend.
type Registry struct {
	factories []Factory
	logger    *slog.Logger
}

func NewRegistry(factories ...Factory) *Registry {
	return &Registry{factories: factories, logger: slog.Default()}
}

func (r *Registry) Register(f Factory) {
	r.factories = append(r.factories, f)
}

// Names lists backend names in selection order, ending with the fallback.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories)+1)
	for _, f := range r.factories {
		b := f()
		names = append(names, b.Name())
		r.discard(b)
	}
	return append(names, NullName)
}

// Select returns the first backend satisfying pred, or the null backend.
// Rejected candidates are cleaned up.
func (r *Registry) Select(pred Predicate) Backend {
	for _, f := range r.factories {
		b := f()
		if pred(b) {
			return b
		}
		r.discard(b)
	}
	return NewNull()
}

// All builds one instance of every registered backend.
func (r *Registry) All() []Backend {
	out := make([]Backend, 0, len(r.factories))
	for _, f := range r.factories {
		out = append(out, f())
	}
	return out
}

// ByName selects the backend declaring name, compared case-insensitively.
func (r *Registry) ByName(name string) Backend {
	return r.Select(ByName(name))
}

// Detect selects the first backend already controlling path.
func (r *Registry) Detect(path string) Backend {
	return r.Select(DetectedIn(path))
}

// Installed selects the first backend whose client is present.
func (r *Registry) Installed() Backend {
	return r.Select(IsInstalled())
}

func (r *Registry) discard(b Backend) {
	if err := b.Cleanup(); err != nil {
		r.logger.Debug("discard backend", slog.String("backend", b.Name()), slog.Any("err", err))
	}
}

func ByName(name string) Predicate {
	return func(b Backend) bool {
		return strings.EqualFold(b.Name(), name)
	}
}

func DetectedIn(path string) Predicate {
	return func(b Backend) bool {
		return b.Detect(path)
	}
}

// IsInstalled accepts healthy and broken installations alike: only a missing
// client is rejected.
func IsInstalled() Predicate {
	return func(b Backend) bool {
		return b.Installed().Present()
	}
}
