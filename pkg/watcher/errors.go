package watcher

import "errors"

// Errors returned by the export watcher.
var (
	// ErrWatcherClosed is returned when using a closed watcher.
	ErrWatcherClosed = errors.New("watcher is closed")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("watcher already started")

	// ErrNotStarted is returned when Stop is called before Start.
	ErrNotStarted = errors.New("watcher not started")

	// ErrCircuitBreakerOpen is reported on the Errors channel after
	// repeated consecutive watch failures.
	ErrCircuitBreakerOpen = errors.New("circuit breaker open")

	// ErrInvalidPath is returned when none of the watch paths exist.
	ErrInvalidPath = errors.New("invalid watch path")
)
