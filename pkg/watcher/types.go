// Package watcher monitors export directories for changes.
//
// Events come from fsnotify, are filtered to billing export files by
// extension, and are debounced so a burst of writes to the same export
// surfaces as a single event. Directories created under a watched path
// while watching (a new billing account, say) are folded in
// automatically.
//
// Example usage:
//
//	w, err := watcher.New(watcher.Config{
//	    DebounceInterval: 100 * time.Millisecond,
//	}, logger.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//
//	if err := w.Start(ctx, []string{"~/billing/exports"}); err != nil {
//	    log.Fatal(err)
//	}
//
//	for event := range w.Events() {
//	    fmt.Printf("%s: %s\n", event.Op, event.Path)
//	}
package watcher

import (
	"context"
	"time"
)

// Op describes what happened to an export file.
type Op uint32

// File operation types. Permission-only changes are not reported.
const (
	OpCreate Op = 1 << iota // File created
	OpWrite                 // File modified
	OpRemove                // File deleted
	OpRename                // File renamed/moved
)

// String returns a human-readable operation name.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpWrite:
		return "WRITE"
	case OpRemove:
		return "REMOVE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// Event is one debounced change to an export file.
type Event struct {
	// Path is the path of the export file that changed.
	Path string

	// Op is the operation that triggered the event.
	Op Op

	// Timestamp is when the event was observed.
	Timestamp time.Time
}

// Watcher provides file system monitoring of export directories.
type Watcher interface {
	// Start begins watching the given directories, including their
	// subdirectories. Paths that do not exist are skipped with a
	// warning; Start fails with ErrInvalidPath when nothing watchable
	// remains. Returns once watching is established; events are
	// delivered on the Events channel until the context is cancelled
	// or the watcher is stopped.
	Start(ctx context.Context, paths []string) error

	// Stop ends event delivery. The watcher cannot be restarted.
	Stop() error

	// Events returns the channel of debounced export file events.
	// The channel is closed when the watcher is closed.
	Events() <-chan Event

	// Errors returns the channel of non-fatal watch errors.
	// The channel is closed when the watcher is closed.
	Errors() <-chan error

	// Close releases the watcher and closes both channels.
	Close() error
}

// Config contains watcher configuration.
type Config struct {
	// DebounceInterval is the quiet period before an event is emitted.
	// Changes to the same file within the interval coalesce into one
	// event. Default: 100ms.
	DebounceInterval time.Duration

	// Extensions restricts events to files with one of these suffixes
	// (case-insensitive, leading dot included). Default: [".jsonl"].
	Extensions []string

	// CircuitBreakerThreshold is the number of consecutive watch
	// failures after which ErrCircuitBreakerOpen is reported instead
	// of individual errors. Default: 5.
	CircuitBreakerThreshold int
}
