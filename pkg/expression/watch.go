package expression

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/teslashibe/go-face/internal/log"
	"github.com/teslashibe/go-face/pkg/blendshape"
)

// settle is how long a preset file must be quiet before it is re-read.
// Editors often write a file in several steps.
const settle = 100 * time.Millisecond

// Watcher reloads a preset file whenever it changes on disk.
type Watcher struct {
	path    string
	space   *blendshape.Space
	logger  *slog.Logger
	watcher *fsnotify.Watcher
}

// NewWatcher watches the directory holding path. Renames and atomic saves
// are picked up as well as in-place writes.
func NewWatcher(path string, space *blendshape.Space, logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create preset watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{
		path:    abs,
		space:   space,
		logger:  log.Component(logger, "expression").With("file", abs),
		watcher: w,
	}, nil
}

// Run delivers every successfully reloaded preset to fn until ctx is
// cancelled. Presets that fail to load are logged and skipped.
func (w *Watcher) Run(ctx context.Context, fn func(*Preset)) error {
	defer w.watcher.Close()

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				debounce = time.After(settle)
			}

		case <-debounce:
			debounce = nil
			p, err := LoadFile(w.path, w.space)
			if err != nil {
				w.logger.Warn("preset reload failed", "error", err)
				continue
			}
			for _, issue := range p.Issues() {
				w.logger.Warn("preset value rejected", "issue", issue.String())
			}
			w.logger.Info("preset reloaded", "preset", p.Name)
			fn(p)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("preset watcher error", "error", err)
		}
	}
}
