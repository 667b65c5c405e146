package reports

import "errors"

// Common errors returned by the report manager.
var (
	// ErrReportNotFound is returned when a report is not found.
	ErrReportNotFound = errors.New("report not found")

	// ErrInvalidName is returned when a report name is empty or malformed.
	ErrInvalidName = errors.New("invalid report name")

	// ErrNameConflict is returned when a report name is already taken.
	ErrNameConflict = errors.New("report name already exists")

	// ErrInvalidKind is returned when a report kind is not recognized.
	ErrInvalidKind = errors.New("invalid report kind")

	// ErrInvalidReport is returned when a report is nil or has no payload.
	ErrInvalidReport = errors.New("invalid report")
)
