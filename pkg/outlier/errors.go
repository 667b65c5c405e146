package outlier

import "errors"

// Common errors returned by the outlier package.
var (
	// ErrInvalidThreshold is returned when the threshold is negative.
	ErrInvalidThreshold = errors.New("invalid threshold: must be > 0")

	// ErrInvalidLimit is returned when the result limit is negative.
	ErrInvalidLimit = errors.New("invalid limit: must be >= 0")
)
