package seed

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/trezcool/lichsu/core"
	"github.com/trezcool/lichsu/core/timeline"
)

const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads a seed directory whenever one of its files changes.
type Watcher struct {
	dir      string
	logger   core.Logger
	debounce time.Duration
	onChange func(timeline.Snapshot)
}

func NewWatcher(dir string, logger core.Logger, onChange func(timeline.Snapshot)) *Watcher {
	return &Watcher{
		dir:      dir,
		logger:   logger,
		debounce: DefaultDebounce,
		onChange: onChange,
	}
}

// WithDebounce sets how long the directory must stay quiet before it is reloaded.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Run watches the directory until ctx is cancelled.
// Files that fail to load are logged and the previous content is kept.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating watcher")
	}
	defer func() { _ = fsw.Close() }()

	if err = fsw.Add(w.dir); err != nil {
		return errors.Wrapf(err, "watching %s", w.dir)
	}
	w.logger.Info("watching seed directory", map[string]interface{}{"dir": w.dir})

	tick := w.debounce / 5
	if tick <= 0 {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var lastEvent time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if isSeedFile(evt.Name) && evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				lastEvent = time.Now()
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("seed watcher", err)

		case <-ticker.C:
			if lastEvent.IsZero() || time.Since(lastEvent) < w.debounce {
				continue
			}
			lastEvent = time.Time{}
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	snap, err := Load(w.dir)
	if err != nil {
		w.logger.Error("reloading seed", err)
		return
	}
	w.logger.Info("seed reloaded", map[string]interface{}{
		"stages": len(snap.Stages),
		"extras": len(snap.Extras),
		"hidden": len(snap.Hidden),
	})
	w.onChange(snap)
}

func isSeedFile(name string) bool {
	base := filepath.Base(name)
	for _, f := range Files {
		if base == f {
			return true
		}
	}
	return false
}
