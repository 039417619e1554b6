package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultAutoSaveInterval matches the two-minute backup cadence.
const DefaultAutoSaveInterval = 2 * time.Minute

// Snapshotter writes a full backup. It must be safe to call repeatedly.
type Snapshotter interface {
	Snapshot(ctx context.Context) error
}

// AutoSaveWorker takes a snapshot on every tick and once more on Stop.
// Snapshot failures are logged and never stop the loop.
type AutoSaveWorker struct {
	backups  Snapshotter
	interval time.Duration

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewAutoSaveWorker(backups Snapshotter, interval time.Duration) *AutoSaveWorker {
	if interval <= 0 {
		interval = DefaultAutoSaveInterval
	}
	return &AutoSaveWorker{backups: backups, interval: interval}
}

// Start begins the ticker loop. Returns an error if already running.
func (w *AutoSaveWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("auto-save worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	go w.runLoop(ctx)

	slog.InfoContext(ctx, "Auto-save worker started", "interval", w.interval)
	return nil
}

// Stop ends the loop and takes the shutdown snapshot. It is a no-op when the
// worker is not running.
func (w *AutoSaveWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		slog.WarnContext(ctx, "Auto-save worker stop timed out")
		return ctx.Err()
	}

	if err := w.backups.Snapshot(ctx); err != nil {
		return fmt.Errorf("shutdown snapshot: %w", err)
	}
	slog.InfoContext(ctx, "Auto-save worker stopped, final snapshot written")
	return nil
}

// IsRunning returns whether the worker is currently running
func (w *AutoSaveWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *AutoSaveWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.backups.Snapshot(ctx); err != nil {
				slog.ErrorContext(ctx, "Auto-save failed", "error", err)
			}
		}
	}
}
