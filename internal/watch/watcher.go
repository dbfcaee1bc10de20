// Package watch monitors the intake directory and feeds arriving files
// to a handler, deduplicating the bursts of events filesystems emit for
// a single file.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Veraticus/autofiler/internal/common"
)

const (
	// dedupWindow is how long repeat events for the same path are ignored.
	dedupWindow = 5 * time.Second
	// pruneInterval is how often stale dedup entries are dropped.
	pruneInterval = 30 * time.Second
	// settleDelay gives the writer time to finish before the handler runs.
	settleDelay = 1 * time.Second
)

// Handler processes one arrived file.
type Handler func(ctx context.Context, path string) error

// Watcher delivers deduplicated file-arrival events from one directory.
type Watcher struct {
	dir     string
	handler Handler

	mu   sync.Mutex
	seen map[string]time.Time
}

// New creates a watcher for dir that invokes handler per arriving file.
func New(dir string, handler Handler) *Watcher {
	return &Watcher{
		dir:     dir,
		handler: handler,
		seen:    make(map[string]time.Time),
	}
}

// Run watches until the context is canceled. Handler errors are logged,
// never fatal: one bad file must not stop the watch loop.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	common.LogInfo("watching intake directory", common.Fields{"dir": w.dir})

	prune := time.NewTicker(pruneInterval)
	defer prune.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-prune.C:
			w.pruneSeen()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			path, err := filepath.Abs(event.Name)
			if err != nil {
				path = filepath.Clean(event.Name)
			}
			if !w.firstSight(path) {
				continue
			}
			w.deliver(ctx, path)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			common.LogError(err, "filesystem watcher error", common.Fields{"dir": w.dir})
		}
	}
}

// firstSight records the path and reports whether this is the first
// event for it within the dedup window.
func (w *Watcher) firstSight(path string) bool {
	now := time.Now()
	w.mu.Lock()
	defer w.mu.Unlock()
	if last, ok := w.seen[path]; ok && now.Sub(last) < dedupWindow {
		return false
	}
	w.seen[path] = now
	return true
}

func (w *Watcher) pruneSeen() {
	cutoff := time.Now().Add(-dedupWindow)
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, last := range w.seen {
		if last.Before(cutoff) {
			delete(w.seen, path)
		}
	}
}

func (w *Watcher) deliver(ctx context.Context, path string) {
	// Let the writing process finish; guards catch anything still open.
	timer := time.NewTimer(settleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	err := common.WithRetry(ctx, func() error {
		return w.handler(ctx, path)
	}, common.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: settleDelay,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		common.LogError(err, "failed to process arrived file", common.Fields{"file": path})
	}
}
