// Package watch reports quiet periods after changes below a directory tree.
package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thiagokokada/bevcs/internal/debounce"
)

// ignoredDirs hold backend metadata; changes there are the backend's own.
var ignoredDirs = map[string]bool{
	".git":   true,
	".hg":    true,
	".bzr":   true,
	"_darcs": true,
	"{arch}": true,
}

// Watcher collects changed paths and hands them to a callback once no new
// event arrived for the configured delay.
type Watcher struct {
	root string
	fn   func(paths []string)

	fsw      *fsnotify.Watcher
	debounce *debounce.Debouncer

	mu      sync.Mutex
	pending map[string]struct{}
	// callMu serializes callbacks and lets Close wait for one in flight.
	callMu sync.Mutex

	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

func New(root string, delay time.Duration, fn func(paths []string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	w := &Watcher{root: root, fn: fn, fsw: fsw, pending: map[string]struct{}{}}
	if err := w.addTree(root); err != nil {
		return nil, errors.Join(err, fsw.Close())
	}
	w.debounce = debounce.New(delay, w.flush)
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && ignoredDirs[d.Name()] {
			return filepath.SkipDir
		}
		slog.Debug("adding path to FS watcher", slog.String("path", path))
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("fsnotify error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if shouldIgnore(w.root, ev.Name) {
		return
	}
	slog.Debug("fsnotify event",
		slog.String("op", ev.Op.String()),
		slog.String("path", ev.Name),
	)
	if ev.Has(fsnotify.Create) {
		// New directories need their own watch; errors mean it vanished again.
		if err := w.addTree(ev.Name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Debug("watch new path", slog.String("path", ev.Name), slog.Any("err", err))
		}
	}
	w.mu.Lock()
	w.pending[ev.Name] = struct{}{}
	w.mu.Unlock()
	w.debounce.Trigger()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	paths := slices.Sorted(maps.Keys(w.pending))
	w.pending = map[string]struct{}{}
	w.mu.Unlock()
	if len(paths) == 0 {
		return
	}
	w.callMu.Lock()
	defer w.callMu.Unlock()
	w.fn(paths)
}

// Close stops watching and waits for a running callback to return.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.debounce.Stop()
		w.closeErr = w.fsw.Close()
		w.wg.Wait()
		w.callMu.Lock()
		w.callMu.Unlock()
	})
	return w.closeErr
}

func shouldIgnore(root, name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".lock" || ext == ".ipc" {
		return true
	}
	rel, err := filepath.Rel(root, name)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if ignoredDirs[part] {
			return true
		}
	}
	return false
}
