package billing

import "errors"

// Common errors returned by the billing package.
var (
	// ErrNegativeCost is returned when a record has a negative cost.
	ErrNegativeCost = errors.New("invalid cost: must be non-negative")

	// ErrInvalidConversionRate is returned when a currency conversion rate
	// is present but not positive.
	ErrInvalidConversionRate = errors.New("invalid currency conversion rate: must be positive")

	// ErrInvalidUsageWindow is returned when usage_start_time is after
	// usage_end_time.
	ErrInvalidUsageWindow = errors.New("invalid usage window: start time after end time")

	// ErrNegativeUsage is returned when a usage amount is negative.
	ErrNegativeUsage = errors.New("invalid usage amount: must be non-negative")

	// ErrMalformedJSON is returned when a JSONL line cannot be parsed.
	ErrMalformedJSON = errors.New("malformed JSON line")

	// ErrFileTooLarge is returned when a file exceeds the maximum size limit.
	ErrFileTooLarge = errors.New("file size exceeds maximum limit")
)

// ParseError provides context about a parsing failure.
type ParseError struct {
	Line int    // Line number where error occurred (1-indexed)
	Data string // The malformed line (truncated if too long)
	Err  error  // Underlying error
}

func (e *ParseError) Error() string {
	const maxLen = 100
	data := e.Data
	if len(data) > maxLen {
		data = data[:maxLen] + "..."
	}
	if e.Line > 0 {
		return "parse error at line " + itoa(e.Line) + ": " + data + ": " + e.Err.Error()
	}
	return "parse error: " + data + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// itoa converts int to string without importing strconv.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}

	negative := i < 0
	if negative {
		i = -i
	}

	var buf [20]byte
	pos := len(buf)

	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}

	if negative {
		pos--
		buf[pos] = '-'
	}

	return string(buf[pos:])
}
