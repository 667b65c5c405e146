package logger

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// logToFile builds a logger writing to a fresh temp file and returns
// the logger plus a function that reads everything written so far.
func logToFile(t *testing.T, level, format string) (Logger, func() string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "billscan.log")
	log := New(Config{
		Level:  level,
		Output: path,
		Format: format,
	})

	return log, func() string {
		data, err := os.ReadFile(path) // nolint:gosec // Test file with known path
		if err != nil {
			t.Fatalf("Failed to read log file: %v", err)
		}
		return string(data)
	}
}

func TestNew(t *testing.T) {
	log := New(Config{
		Level:  "info",
		Output: "stderr",
		Format: "text",
	})

	if log == nil {
		t.Fatal("New() returned nil logger")
	}
}

func TestTextOutput(t *testing.T) {
	log, readBack := logToFile(t, "info", "text")

	log.Info("scan complete", "files", 3, "records", 1204)

	out := readBack()
	if !strings.Contains(out, "scan complete") {
		t.Errorf("output missing message: %q", out)
	}
	if !strings.Contains(out, "files=3") || !strings.Contains(out, "records=1204") {
		t.Errorf("output missing fields: %q", out)
	}
}

func TestJSONOutput(t *testing.T) {
	log, readBack := logToFile(t, "info", "json")

	log.Info("export parsed", "path", "/exports/acct/2025-07.jsonl", "cost_total", "41.20")

	var entry map[string]any
	if err := json.Unmarshal([]byte(readBack()), &entry); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}

	if entry["msg"] != "export parsed" {
		t.Errorf("msg = %v, want %q", entry["msg"], "export parsed")
	}
	if entry["path"] != "/exports/acct/2025-07.jsonl" {
		t.Errorf("path = %v", entry["path"])
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %v, want INFO", entry["level"])
	}
}

func TestLevelFiltering(t *testing.T) {
	log, readBack := logToFile(t, "warn", "text")

	log.Debug("noisy detail")
	log.Info("routine progress")
	log.Warn("export skipped", "reason", "malformed line")
	log.Error("scan failed")

	out := readBack()
	if strings.Contains(out, "noisy detail") || strings.Contains(out, "routine progress") {
		t.Errorf("suppressed levels leaked through: %q", out)
	}
	if !strings.Contains(out, "export skipped") || !strings.Contains(out, "scan failed") {
		t.Errorf("output missing warn/error entries: %q", out)
	}
}

func TestDebugLevel(t *testing.T) {
	log, readBack := logToFile(t, "debug", "text")

	log.Debug("read export file", "offset", 4096)

	if out := readBack(); !strings.Contains(out, "read export file") {
		t.Errorf("debug entry missing at debug level: %q", out)
	}
}

func TestWith(t *testing.T) {
	log, readBack := logToFile(t, "info", "text")

	scoped := log.With("account", "01A2B3-C4D5E6")
	scoped.Info("account scan started")

	out := readBack()
	if !strings.Contains(out, "account=01A2B3-C4D5E6") {
		t.Errorf("With() field missing: %q", out)
	}

	// The parent logger is unaffected.
	log.Info("other work")
	out = readBack()
	if strings.Count(out, "account=01A2B3-C4D5E6") != 1 {
		t.Errorf("With() field leaked to parent: %q", out)
	}
}

func TestFileOutputAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "billscan.log")

	New(Config{Output: path}).Info("first session")
	New(Config{Output: path}).Info("second session")

	data, err := os.ReadFile(path) // nolint:gosec // Test file with known path
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	out := string(data)
	if !strings.Contains(out, "first session") || !strings.Contains(out, "second session") {
		t.Errorf("log file should contain both sessions: %q", out)
	}
}

func TestNoop(t *testing.T) {
	log := Noop()

	// Must be safe at every level, including derived loggers.
	log.Debug("ignored")
	log.Info("ignored")
	log.Warn("ignored")
	log.Error("ignored")
	log.With("k", "v").Info("ignored")
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Error("Default() returned nil logger")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestResolveOutputFallsBackToStderr(t *testing.T) {
	// Unusable path: parent directory does not exist.
	w := resolveOutput(filepath.Join(t.TempDir(), "missing", "sub", "billscan.log"))

	if w != os.Stderr {
		t.Errorf("resolveOutput() = %T, want stderr fallback", w)
	}
}
