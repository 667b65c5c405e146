package analyze

import "errors"

// Common errors returned by the analyze package.
var (
	// ErrNilKeyFunc is returned when Config.Key is missing.
	ErrNilKeyFunc = errors.New("key function is required")

	// ErrNilValueFunc is returned when Config.Value is missing.
	ErrNilValueFunc = errors.New("value function is required")

	// ErrUnknownDimension is returned when a dimension name is not recognized.
	ErrUnknownDimension = errors.New("unknown dimension")

	// ErrNoDimensions is returned when a key is built from zero dimensions.
	ErrNoDimensions = errors.New("at least one dimension is required")

	// ErrIncompatibleMerge is returned when two aggregators cannot be merged.
	ErrIncompatibleMerge = errors.New("aggregators are not compatible for merging")

	// ErrSourceFailed wraps a record source failure. Results from the
	// failed pass are discarded; the analysis is atomic.
	ErrSourceFailed = errors.New("record source failed mid-scan")
)
