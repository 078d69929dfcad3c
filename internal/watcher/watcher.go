// Package watcher triggers plugin re-discovery when the plugin directory
// changes on disk, so plugins dropped into the folder (or deleted from
// it) are picked up without restarting the process.
package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/warren-labs/warren/internal/logger"
)

// DefaultDebounce batches bursts of filesystem events (an unpacking
// archive emits many) into one refresh.
const DefaultDebounce = 500 * time.Millisecond

// RefreshFunc is invoked after the plugin directory settled.
type RefreshFunc func(ctx context.Context) error

// Watcher observes one directory and debounces change notifications into
// refresh calls.
type Watcher struct {
	dir      string
	refresh  RefreshFunc
	debounce time.Duration
	ready    chan struct{}
}

// New creates a watcher over dir. Refresh runs on the watcher's
// goroutine, so it must be safe to call concurrently with other users of
// the underlying state.
func New(dir string, refresh RefreshFunc) *Watcher {
	return &Watcher{
		dir:      dir,
		refresh:  refresh,
		debounce: DefaultDebounce,
		ready:    make(chan struct{}),
	}
}

// Ready is closed once Run has installed the directory watch. Changes
// made before that point are not observed, so callers that mutate the
// directory right after starting Run must wait on it.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until the context is cancelled. Refresh errors are logged,
// not fatal: a half-copied plugin folder should not kill the watcher.
// Run must be called at most once per Watcher.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	close(w.ready)
	logger.Debug("Watching plugin directory %s", w.dir)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			logger.Debug("Plugin directory changed: %s", event)
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Plugin watcher error: %v", err)

		case <-timer.C:
			if err := w.refresh(ctx); err != nil {
				logger.Warn("Plugin refresh failed: %v", err)
			}
		}
	}
}
