// Package logger provides structured logging for billscan.
//
// Output is built on log/slog with text and JSON handlers, a
// configurable level, and destinations covering stderr, stdout, and
// append-only log files.
//
// Example usage:
//
//	log := logger.New(logger.Config{
//	    Level:  "info",
//	    Output: "stderr",
//	    Format: "text",
//	})
//	log.Info("scan complete", "files", 3, "records", 1204)
//	log.Error("export unreadable", "error", err, "path", path)
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger provides leveled logging with key-value fields.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs an informational message with optional key-value pairs.
	Info(msg string, keysAndValues ...any)

	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, keysAndValues ...any)

	// Error logs an error message with optional key-value pairs.
	Error(msg string, keysAndValues ...any)

	// With returns a new logger with additional context fields.
	With(keysAndValues ...any) Logger
}

// Config contains logger configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	// Unrecognized levels fall back to info.
	Level string

	// Output is the destination: stderr (default), stdout, discard, or
	// a file path opened for appending.
	Output string

	// Format is the output format (text, json).
	Format string
}

// slogLogger adapts *slog.Logger to the Logger interface.
type slogLogger struct {
	sl *slog.Logger
}

// New creates a logger from the configuration. Invalid settings never
// fail: an unusable destination falls back to stderr so analysis
// commands keep running with their diagnostics intact.
func New(cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	w := resolveOutput(cfg.Output)

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &slogLogger{sl: slog.New(handler)}
}

// Default returns an info-level text logger writing to stderr.
func Default() Logger {
	return New(Config{})
}

// Noop returns a logger that discards everything. Useful in tests and
// for components that must stay silent.
func Noop() Logger {
	return New(Config{Output: "discard"})
}

func (l *slogLogger) Debug(msg string, keysAndValues ...any) {
	l.sl.Debug(msg, keysAndValues...)
}

func (l *slogLogger) Info(msg string, keysAndValues ...any) {
	l.sl.Info(msg, keysAndValues...)
}

func (l *slogLogger) Warn(msg string, keysAndValues ...any) {
	l.sl.Warn(msg, keysAndValues...)
}

func (l *slogLogger) Error(msg string, keysAndValues ...any) {
	l.sl.Error(msg, keysAndValues...)
}

func (l *slogLogger) With(keysAndValues ...any) Logger {
	return &slogLogger{sl: l.sl.With(keysAndValues...)}
}

// parseLevel maps a level name to its slog level, defaulting to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// resolveOutput maps a destination name to a writer. Anything other
// than the named destinations is treated as a file path.
func resolveOutput(output string) io.Writer {
	switch strings.ToLower(output) {
	case "", "stderr":
		return os.Stderr
	case "stdout":
		return os.Stdout
	case "discard":
		return io.Discard
	default:
		// #nosec G304: output path comes from trusted config
		f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600) // nolint:gosec
		if err != nil {
			return os.Stderr
		}
		return f
	}
}
