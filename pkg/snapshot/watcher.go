package snapshot

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hjrent/hjstore/pkg/telemetry"
)

// DefaultDebounce is how long the watcher waits after the last change
// before re-applying the snapshot.
const DefaultDebounce = 500 * time.Millisecond

// ApplyFunc receives a freshly read snapshot.
type ApplyFunc func(ctx context.Context, snap Snapshot) error

// Watcher re-reads a snapshot file whenever it changes and hands it to an
// ApplyFunc. Bursts of writes are collapsed into one apply.
type Watcher struct {
	path     string
	apply    ApplyFunc
	logger   *telemetry.Logger
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	timer   *time.Timer
	done    chan struct{}
}

// NewWatcher creates a watcher for the snapshot file at path.
func NewWatcher(path string, apply ApplyFunc, logger *telemetry.Logger) *Watcher {
	if logger == nil {
		logger = telemetry.NewNopLogger()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		apply:    apply,
		logger:   logger.NewComponentLogger("snapshot-watcher").WithField("path", path),
		debounce: DefaultDebounce,
		done:     make(chan struct{}),
	}
}

// SetDebounce changes the quiet period before an apply.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

// Start begins watching in the background until ctx is cancelled or Close
// is called. The parent directory is watched so that editors replacing the
// file by rename are noticed.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	w.mu.Lock()
	w.watcher = watcher
	w.mu.Unlock()

	go w.processEvents(ctx)

	w.logger.Info("Started watching snapshot")
	return nil
}

// Done is closed when the watcher has stopped.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			_ = w.Close()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			w.logger.WithField("op", event.Op.String()).Debug("Snapshot file changed")
			w.schedule(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("Watcher error")
		}
	}
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if err := w.reload(ctx); err != nil {
			w.logger.WithError(err).Error("Failed to re-apply snapshot")
		}
	})
}

func (w *Watcher) reload(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}

	snap, err := ReadFile(w.path)
	if err != nil {
		return err
	}

	if err := w.apply(ctx, snap); err != nil {
		return fmt.Errorf("failed to apply snapshot: %w", err)
	}

	w.logger.WithField("keys", len(snap)).Info("Snapshot re-applied")
	return nil
}
