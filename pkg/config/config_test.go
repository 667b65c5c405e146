package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Verify defaults are set
	if len(cfg.ExportDirs) == 0 {
		t.Error("ExportDirs is empty")
	}

	if cfg.Analysis.OutlierThreshold <= 0 {
		t.Error("OutlierThreshold not set")
	}

	if len(cfg.Analysis.RollingWindows) == 0 {
		t.Error("RollingWindows not set")
	}

	if cfg.Monitoring.WatchInterval <= 0 {
		t.Error("WatchInterval not set")
	}

	if cfg.Display.DefaultMode == "" {
		t.Error("DefaultMode not set")
	}

	if cfg.Logging.Level == "" {
		t.Error("Log level not set")
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			ExportDirs: []string{"/path"},
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
				DefaultMode: "table",
			},
			Logging: LoggingConfig{
				Level:  "info",
				Format: "text",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "no export directories",
			mutate:  func(c *Config) { c.ExportDirs = nil },
			wantErr: true,
		},
		{
			name:    "zero outlier threshold",
			mutate:  func(c *Config) { c.Analysis.OutlierThreshold = 0 },
			wantErr: true,
		},
		{
			name:    "negative outlier limit",
			mutate:  func(c *Config) { c.Analysis.OutlierLimit = -1 },
			wantErr: true,
		},
		{
			name:    "zero rolling window",
			mutate:  func(c *Config) { c.Analysis.RollingWindows = []int{7, 0} },
			wantErr: true,
		},
		{
			name:    "negative pair min count",
			mutate:  func(c *Config) { c.Analysis.PairMinCount = -1 },
			wantErr: true,
		},
		{
			name:    "zero watch interval",
			mutate:  func(c *Config) { c.Monitoring.WatchInterval = 0 },
			wantErr: true,
		},
		{
			name:    "zero debounce window",
			mutate:  func(c *Config) { c.Monitoring.DebounceWindow = 0 },
			wantErr: true,
		},
		{
			name:    "invalid display mode",
			mutate:  func(c *Config) { c.Display.DefaultMode = "invalid" },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "invalid" },
			wantErr: true,
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		content string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid config file",
			content: `
export_dirs:
  - /path/to/exports1
  - /path/to/exports2
analysis:
  outlier_threshold: 3.0
  outlier_limit: 10
  rolling_windows: [14]
  pair_min_count: 3
monitoring:
  watch_interval: 2s
  debounce_window: 200ms
display:
  default_mode: simple
  color_enabled: false
storage:
  db_path: /tmp/test.db
logging:
  level: debug
  output: stdout
  format: json
`,
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				if len(cfg.ExportDirs) != 2 {
					t.Errorf("got %d export dirs, want 2", len(cfg.ExportDirs))
				}
				if cfg.Analysis.OutlierThreshold != 3.0 {
					t.Errorf("OutlierThreshold = %v, want 3.0", cfg.Analysis.OutlierThreshold)
				}
				if len(cfg.Analysis.RollingWindows) != 1 || cfg.Analysis.RollingWindows[0] != 14 {
					t.Errorf("RollingWindows = %v, want [14]", cfg.Analysis.RollingWindows)
				}
				if cfg.Monitoring.WatchInterval != 2*time.Second {
					t.Errorf("WatchInterval = %v, want 2s", cfg.Monitoring.WatchInterval)
				}
				if cfg.Display.DefaultMode != "simple" {
					t.Errorf("DefaultMode = %s, want simple", cfg.Display.DefaultMode)
				}
				if cfg.Display.ColorEnabled {
					t.Error("ColorEnabled = true, want false")
				}
				if cfg.Logging.Level != "debug" {
					t.Errorf("LogLevel = %s, want debug", cfg.Logging.Level)
				}
			},
		},
		{
			name:    "invalid yaml",
			content: `invalid: yaml: content: [`,
			wantErr: true,
		},
		{
			name:    "non-existent file",
			content: "", // Will not create file
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var filePath string

			if tt.name != "non-existent file" {
				filePath = filepath.Join(tmpDir, tt.name+".yaml")
				if err := os.WriteFile(filePath, []byte(tt.content), 0600); err != nil {
					t.Fatalf("Failed to create test file: %v", err)
				}
			} else {
				filePath = filepath.Join(tmpDir, "nonexistent.yaml")
			}

			loader := NewLoader(filePath)
			cfg, err := loader.Load()

			if tt.wantErr {
				if err == nil {
					t.Error("Load() error = nil, wantErr = true")
				}
				return
			}

			if err != nil {
				t.Errorf("Load() error = %v, wantErr = false", err)
				return
			}

			if cfg == nil {
				t.Error("Load() returned nil config")
				return
			}

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	// Test default loading (no config file)
	cfg, err := Load()
	if err != nil {
		t.Errorf("Load() error = %v, want nil", err)
	}

	if cfg == nil {
		t.Fatal("Load() returned nil")
	}

	// Should have default values
	if len(cfg.ExportDirs) == 0 {
		t.Error("Load() returned config with no export dirs")
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg := Default()
	cfg.Logging.Level = "debug"

	// Save config
	if err := Save(cfg, configPath); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Verify file exists
	if _, err := os.Stat(configPath); err != nil {
		t.Errorf("Config file not created: %v", err)
	}

	// Load it back and verify
	loadedCfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if loadedCfg.Logging.Level != "debug" {
		t.Errorf("Loaded config LogLevel = %s, want debug", loadedCfg.Logging.Level)
	}
}

func TestEnvVarOverrides(t *testing.T) {
	t.Setenv("BILLSCAN_EXPORT_DIR", "/env/dir1,/env/dir2")
	t.Setenv("BILLSCAN_DB", "/env/db.db")
	t.Setenv("BILLSCAN_LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Verify env var overrides
	if len(cfg.ExportDirs) != 2 {
		t.Errorf("got %d export dirs, want 2", len(cfg.ExportDirs))
	}
	if cfg.ExportDirs[0] != "/env/dir1" {
		t.Errorf("ExportDirs[0] = %s, want /env/dir1", cfg.ExportDirs[0])
	}

	if cfg.Storage.DBPath != "/env/db.db" {
		t.Errorf("DBPath = %s, want /env/db.db", cfg.Storage.DBPath)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.Logging.Level)
	}
}

// Benchmark config loading.
func BenchmarkLoad(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := Load()
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkValidate(b *testing.B) {
	cfg := Default()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := cfg.Validate(); err != nil {
			b.Fatal(err)
		}
	}
}
