package discovery

import "errors"

// Common errors returned by the discovery package.
var (
	// ErrAccountNotFound is returned when an account directory does not exist.
	ErrAccountNotFound = errors.New("account directory not found")

	// ErrNoExportsFound is returned when no export files are discovered.
	ErrNoExportsFound = errors.New("no export files found")

	// ErrInvalidPath is returned when a path is invalid or inaccessible.
	ErrInvalidPath = errors.New("invalid or inaccessible path")
)
