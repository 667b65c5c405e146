// Package config provides configuration management for billscan.
//
// Configuration is loaded from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Configuration file
// 4. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Export dirs: %v\n", cfg.ExportDirs)
package config

import (
	"time"
)

// Config represents the complete application configuration.
//
// Invariants:
// - ExportDirs must have at least one directory
// - Analysis.OutlierThreshold must be > 0
// - Analysis.OutlierLimit must be >= 0
// - Analysis.RollingWindows entries must be > 0
// - Monitoring.WatchInterval must be > 0
// - Monitoring.DebounceWindow must be > 0.
type Config struct {
	// Billing export directories to scan
	ExportDirs []string `yaml:"export_dirs"`

	// Analysis settings
	Analysis AnalysisConfig `yaml:"analysis"`

	// Monitoring settings
	Monitoring MonitoringConfig `yaml:"monitoring"`

	// Display settings
	Display DisplayConfig `yaml:"display"`

	// Storage settings
	Storage StorageConfig `yaml:"storage"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`
}

// AnalysisConfig contains defaults for the analysis commands.
type AnalysisConfig struct {
	// Absolute z-score above which a record is flagged as an outlier
	OutlierThreshold float64 `yaml:"outlier_threshold"`

	// Maximum outliers to report; 0 means unlimited
	OutlierLimit int `yaml:"outlier_limit"`

	// Trailing window sizes, in observed days, for trend smoothing
	RollingWindows []int `yaml:"rolling_windows"`

	// Minimum shared-project count before a service pair is reported;
	// 0 reports every pair
	PairMinCount int `yaml:"pair_min_count"`

	// Ascending cost boundaries for the bucket distribution; empty
	// means the built-in ranges
	BucketBoundaries []string `yaml:"bucket_boundaries"`
}

// MonitoringConfig contains live-watch settings.
type MonitoringConfig struct {
	// How often to poll directories the file watcher cannot cover
	WatchInterval time.Duration `yaml:"watch_interval"`

	// Quiet period after a file event before re-aggregating
	DebounceWindow time.Duration `yaml:"debounce_window"`
}

// DisplayConfig contains display-related settings.
type DisplayConfig struct {
	// Default display mode (table, simple, json)
	DefaultMode string `yaml:"default_mode"`

	// Enable colored output
	ColorEnabled bool `yaml:"color_enabled"`

	// Maximum groups to render; 0 means all
	MaxRows int `yaml:"max_rows"`
}

// StorageConfig contains storage-related settings.
type StorageConfig struct {
	// Path to BoltDB database file (read positions and saved reports)
	DBPath string `yaml:"db_path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output"`

	// Log format (text, json)
	Format string `yaml:"format"`
}

// Validate checks if the configuration satisfies all invariants.
//
// Returns an error if any invariant is violated:
//   - No export directories specified
//   - Non-positive outlier threshold or negative limit
//   - Non-positive rolling window size
//   - Invalid time durations (must be > 0)
//   - Invalid display mode
//   - Invalid log level
//
// Thread-safety: This method is read-only and thread-safe.
func (c *Config) Validate() error {
	if len(c.ExportDirs) == 0 {
		return ErrNoExportDirs
	}

	// Validate analysis config
	if c.Analysis.OutlierThreshold <= 0 {
		return ErrInvalidOutlierThreshold
	}
	if c.Analysis.OutlierLimit < 0 {
		return ErrInvalidOutlierLimit
	}
	for _, w := range c.Analysis.RollingWindows {
		if w <= 0 {
			return ErrInvalidRollingWindow
		}
	}
	if c.Analysis.PairMinCount < 0 {
		return ErrInvalidPairMinCount
	}

	// Validate monitoring config
	if c.Monitoring.WatchInterval <= 0 {
		return ErrInvalidWatchInterval
	}
	if c.Monitoring.DebounceWindow <= 0 {
		return ErrInvalidDebounceWindow
	}

	// Validate display config
	validModes := map[string]bool{
		"table":  true,
		"simple": true,
		"json":   true,
	}
	if !validModes[c.Display.DefaultMode] {
		return ErrInvalidDisplayMode
	}

	if c.Display.MaxRows < 0 {
		return ErrInvalidMaxRows
	}

	// Validate logging config
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	return nil
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		ExportDirs: defaultExportDirs(),
		Analysis: AnalysisConfig{
			OutlierThreshold: 2.0,
			OutlierLimit:     50,
			RollingWindows:   []int{7, 30},
			PairMinCount:     5,
		},
		Monitoring: MonitoringConfig{
			WatchInterval:  5 * time.Second,
			DebounceWindow: 500 * time.Millisecond,
		},
		Display: DisplayConfig{
			DefaultMode:  "table",
			ColorEnabled: true,
		},
		Storage: StorageConfig{
			DBPath: defaultDBPath(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: "text",
		},
	}
}
