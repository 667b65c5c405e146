package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cloudbill/billscan/pkg/logger"
)

// exportWatcher implements Watcher on top of fsnotify.
type exportWatcher struct {
	fsw    *fsnotify.Watcher
	logger logger.Logger
	config Config
	exts   map[string]bool

	events chan Event
	errors chan error

	mu       sync.RWMutex
	running  bool
	closed   bool
	failures int
	stopChan chan struct{}

	pendingMu sync.Mutex
	pending   map[string]*time.Timer
}

// New creates a watcher for billing export directories.
//
// Parameters:
//   - cfg: Watcher configuration
//   - log: Logger instance
//
// Returns:
//   - Configured Watcher
//   - Error if the underlying fsnotify watcher cannot be created
func New(cfg Config, log logger.Logger) (Watcher, error) {
	if cfg.DebounceInterval == 0 {
		cfg.DebounceInterval = 100 * time.Millisecond
	}
	if cfg.CircuitBreakerThreshold == 0 {
		cfg.CircuitBreakerThreshold = 5
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".jsonl"}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	exts := make(map[string]bool, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		exts[strings.ToLower(ext)] = true
	}

	w := &exportWatcher{
		fsw:      fsw,
		logger:   log,
		config:   cfg,
		exts:     exts,
		events:   make(chan Event, 100),
		errors:   make(chan error, 10),
		stopChan: make(chan struct{}),
		pending:  make(map[string]*time.Timer),
	}

	log.Info("export watcher created",
		"debounce_interval", cfg.DebounceInterval,
		"extensions", cfg.Extensions)

	return w, nil
}

// Start implements Watcher.Start.
func (w *exportWatcher) Start(ctx context.Context, paths []string) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyStarted
	}
	w.running = true
	w.mu.Unlock()

	watched := 0
	for _, path := range paths {
		root := expandHome(path)

		if _, err := os.Stat(root); err != nil {
			if os.IsNotExist(err) {
				w.logger.Warn("watch path does not exist, skipping", "path", root)
				continue
			}
			w.abortStart()
			return fmt.Errorf("failed to stat path %s: %w", root, err)
		}

		if err := w.watchTree(root); err != nil {
			w.abortStart()
			return err
		}
		watched++
	}

	if watched == 0 {
		w.abortStart()
		return ErrInvalidPath
	}

	w.logger.Info("watcher started", "roots", watched)

	go w.run(ctx)

	return nil
}

// abortStart reverts the running flag after a failed Start.
func (w *exportWatcher) abortStart() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

// Stop implements Watcher.Stop.
func (w *exportWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if !w.running {
		return ErrNotStarted
	}

	close(w.stopChan)
	w.running = false

	w.logger.Info("watcher stopped")
	return nil
}

// Events implements Watcher.Events.
func (w *exportWatcher) Events() <-chan Event {
	return w.events
}

// Errors implements Watcher.Errors.
func (w *exportWatcher) Errors() <-chan error {
	return w.errors
}

// Close implements Watcher.Close.
func (w *exportWatcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.running {
		close(w.stopChan)
		w.running = false
	}

	close(w.events)
	close(w.errors)

	w.pendingMu.Lock()
	for _, timer := range w.pending {
		timer.Stop()
	}
	w.pending = nil
	w.pendingMu.Unlock()

	if err := w.fsw.Close(); err != nil {
		w.logger.Error("failed to close fsnotify watcher", "error", err)
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	w.logger.Info("watcher closed")
	return nil
}

// run forwards fsnotify activity until stopped.
func (w *exportWatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch loop stopped", "reason", "context cancelled")
			return

		case <-w.stopChan:
			w.logger.Info("watch loop stopped", "reason", "stop signal")
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				w.logger.Warn("fsnotify events channel closed")
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.logger.Warn("fsnotify errors channel closed")
				return
			}
			w.handleError(err)
		}
	}
}

// handleEvent filters and debounces one fsnotify event.
func (w *exportWatcher) handleEvent(event fsnotify.Event) {
	// New directories under a watched root (a fresh billing account,
	// typically) must be folded in so their exports are covered.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if addErr := w.fsw.Add(event.Name); addErr != nil {
				w.logger.Warn("failed to watch new directory",
					"path", event.Name,
					"error", addErr)
			} else {
				w.logger.Debug("watching new directory", "path", event.Name)
			}
			return
		}
	}

	if !w.exts[strings.ToLower(filepath.Ext(event.Name))] {
		return
	}

	op, ok := mapOp(event.Op)
	if !ok {
		return
	}

	w.debounce(Event{
		Path:      event.Name,
		Op:        op,
		Timestamp: time.Now(),
	})
}

// mapOp converts an fsnotify operation. Chmod-only changes carry no
// export content and are dropped.
func mapOp(op fsnotify.Op) (Op, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate, true
	case op.Has(fsnotify.Write):
		return OpWrite, true
	case op.Has(fsnotify.Remove):
		return OpRemove, true
	case op.Has(fsnotify.Rename):
		return OpRename, true
	default:
		return 0, false
	}
}

// debounce delays delivery until the file has been quiet for the
// configured interval, replacing any pending event for the same path.
func (w *exportWatcher) debounce(event Event) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if w.pending == nil {
		// Closed while an fsnotify event was in flight.
		return
	}

	if timer, exists := w.pending[event.Path]; exists {
		timer.Stop()
	}

	w.pending[event.Path] = time.AfterFunc(w.config.DebounceInterval, func() {
		// Holding the read lock excludes Close, so the channel cannot
		// be closed mid-send. The send must not block for the same
		// reason.
		w.mu.RLock()
		if !w.closed {
			select {
			case w.events <- event:
			default:
				w.logger.Warn("event channel full, dropping event", "path", event.Path)
			}
		}
		w.mu.RUnlock()

		w.pendingMu.Lock()
		delete(w.pending, event.Path)
		w.pendingMu.Unlock()
	})
}

// handleError counts consecutive failures and trips the circuit
// breaker once the threshold is reached.
func (w *exportWatcher) handleError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.failures++

	w.logger.Error("watch error",
		"error", err,
		"failures", w.failures)

	reported := err
	if w.failures >= w.config.CircuitBreakerThreshold {
		w.logger.Error("circuit breaker opened",
			"threshold", w.config.CircuitBreakerThreshold)
		reported = ErrCircuitBreakerOpen
	}

	select {
	case w.errors <- reported:
	default:
		w.logger.Warn("error channel full, dropping error")
	}
}

// watchTree adds root and every directory beneath it to the watcher.
// Unreadable subdirectories are skipped; only a failure on the root
// itself aborts.
func (w *exportWatcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("error walking watch path",
				"path", path,
				"error", err)
			return nil
		}

		if !d.IsDir() {
			return nil
		}

		if addErr := w.fsw.Add(path); addErr != nil {
			if path == root {
				return fmt.Errorf("failed to watch %s: %w", path, addErr)
			}
			w.logger.Warn("failed to watch subdirectory",
				"path", path,
				"error", addErr)
			return nil
		}

		w.logger.Debug("watching directory", "path", path)
		return nil
	})
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	return filepath.Join(homeDir, path[2:])
}
