package reader

import "errors"

// Errors returned when reading export files.
var (
	// ErrFileNotFound is returned when an export file does not exist.
	// Treated as transient: exports appear as the provider writes them.
	ErrFileNotFound = errors.New("export file not found")

	// ErrPermissionDenied is returned when an export file cannot be accessed.
	ErrPermissionDenied = errors.New("export file access denied")

	// ErrFileTooLarge is returned when an export file exceeds the size limit.
	ErrFileTooLarge = errors.New("export file exceeds maximum size")

	// ErrInvalidOffset is returned when a read offset is negative.
	ErrInvalidOffset = errors.New("invalid read offset")

	// ErrReaderClosed is returned when using a closed reader.
	ErrReaderClosed = errors.New("reader is closed")
)
