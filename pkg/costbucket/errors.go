package costbucket

import "errors"

// Common errors returned by the costbucket package.
var (
	// ErrNoRanges is returned when the range list is empty.
	ErrNoRanges = errors.New("invalid bucket configuration: at least one range is required")

	// ErrEmptyLabel is returned when a range has no label.
	ErrEmptyLabel = errors.New("invalid bucket configuration: range label must not be empty")

	// ErrDuplicateLabel is returned when two ranges share a label.
	ErrDuplicateLabel = errors.New("invalid bucket configuration: duplicate range label")

	// ErrNotContiguous is returned when the ranges leave a gap or
	// overlap.
	ErrNotContiguous = errors.New("invalid bucket configuration: ranges must be contiguous and non-overlapping")

	// ErrNotExhaustive is returned when the ranges do not cover [0, ∞).
	ErrNotExhaustive = errors.New("invalid bucket configuration: ranges must cover all non-negative costs")

	// ErrMisplacedExact is returned when a degenerate range appears
	// anywhere but as the leading zero range.
	ErrMisplacedExact = errors.New("invalid bucket configuration: an exact range is only valid first, at zero")

	// ErrUnorderedBounds is returned when a range's upper bound does
	// not exceed its lower bound, or boundaries are not ascending.
	ErrUnorderedBounds = errors.New("invalid bucket configuration: bounds must be strictly ascending")
)
