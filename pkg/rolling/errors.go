package rolling

import "errors"

// Common errors returned by the rolling package.
var (
	// ErrInvalidWindow is returned when a window size is not positive.
	ErrInvalidWindow = errors.New("invalid window size: must be > 0")
)
