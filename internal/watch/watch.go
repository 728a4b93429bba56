// Package watch reports changes to the journal directory without blocking
// the interactive loop.
package watch

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher wraps an fsnotify watcher on a single directory.
type Watcher struct {
	w      *fsnotify.Watcher
	ignore func(name string) bool
	logger *slog.Logger
}

// New watches dir. Events whose base name satisfies ignore are dropped.
func New(dir string, ignore func(name string) bool, logger *slog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: new watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch: add %s: %w", dir, err)
	}
	if ignore == nil {
		ignore = func(string) bool { return false }
	}
	logger.Debug("watcher: started", slog.String("root", dir))
	return &Watcher{w: w, ignore: ignore, logger: logger}, nil
}

// Poll drains every pending event and reports whether any of them touched a
// name that is not ignored. It never blocks.
func (w *Watcher) Poll() bool {
	changed := false
	for {
		select {
		case ev, ok := <-w.w.Events:
			if !ok {
				return changed
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			name := filepath.Base(ev.Name)
			if w.ignore(name) {
				continue
			}
			w.logger.Debug("watcher: change", slog.String("entry", name), slog.String("op", ev.Op.String()))
			changed = true
		case err, ok := <-w.w.Errors:
			if !ok {
				return changed
			}
			w.logger.Warn("watcher: error", slog.String("error", err.Error()))
		default:
			return changed
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.w.Close()
}
