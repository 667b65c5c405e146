package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrNoExportDirs is returned when no export directories are specified.
	ErrNoExportDirs = errors.New("no billing export directories specified")

	// ErrInvalidOutlierThreshold is returned when the z-score threshold is <= 0.
	ErrInvalidOutlierThreshold = errors.New("invalid outlier threshold: must be > 0")

	// ErrInvalidOutlierLimit is returned when the outlier limit is negative.
	ErrInvalidOutlierLimit = errors.New("invalid outlier limit: must be >= 0")

	// ErrInvalidRollingWindow is returned when a rolling window size is <= 0.
	ErrInvalidRollingWindow = errors.New("invalid rolling window: must be > 0")

	// ErrInvalidPairMinCount is returned when the pair minimum count is negative.
	ErrInvalidPairMinCount = errors.New("invalid pair minimum count: must be >= 0")

	// ErrInvalidWatchInterval is returned when watch interval is <= 0.
	ErrInvalidWatchInterval = errors.New("invalid watch interval: must be > 0")

	// ErrInvalidDebounceWindow is returned when debounce window is <= 0.
	ErrInvalidDebounceWindow = errors.New("invalid debounce window: must be > 0")

	// ErrInvalidDisplayMode is returned when display mode is not recognized.
	ErrInvalidDisplayMode = errors.New("invalid display mode: must be table, simple, or json")

	// ErrInvalidMaxRows is returned when the row limit is negative.
	ErrInvalidMaxRows = errors.New("invalid max rows: must be >= 0")

	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrConfigNotFound is returned when config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")
)
