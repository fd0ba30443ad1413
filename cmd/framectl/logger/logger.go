// Package logger holds the process-wide slog logger for framectl.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// L is the global logger instance. It's initialized to discard all output by default.
// Call Init() to enable logging to a file.
var L = slog.New(slog.NewTextHandler(io.Discard, nil))

const (
	logPrefix     = "framectl-"
	logSuffix     = ".log"
	retentionDays = 30
)

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	LogDir  string     // Directory for log files. Default: ~/.framectl/logs
	Level   slog.Level // Minimum log level. Default: LevelInfo
}

// current is the open log file, closed when Init runs again.
var current *os.File

// Init configures logging. Call before any log calls.
// If opts.Enabled is false, all log output is discarded.
func Init(opts Options) error {
	Close()

	if !opts.Enabled {
		L = slog.New(slog.NewTextHandler(io.Discard, nil))
		return nil
	}

	logDir := opts.LogDir
	if logDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		logDir = filepath.Join(home, ".framectl", "logs")
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return err
	}

	// Best-effort; a stale log is not worth failing the command.
	cleanOldLogs(logDir, time.Now())

	f, err := os.OpenFile(logFileName(logDir, time.Now()), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	current = f

	L = slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: opts.Level}))
	return nil
}

// Close closes the current log file, if any, and discards further output.
func Close() {
	if current == nil {
		return
	}
	current.Close()
	current = nil
	L = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func logFileName(dir string, now time.Time) string {
	return filepath.Join(dir, logPrefix+now.Format("2006-01-02")+logSuffix)
}

// cleanOldLogs removes log files older than retentionDays.
func cleanOldLogs(logDir string, now time.Time) {
	cutoff := now.AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, logPrefix) || !strings.HasSuffix(name, logSuffix) {
			continue
		}

		// framectl-2024-01-05.log
		dateStr := strings.TrimPrefix(strings.TrimSuffix(name, logSuffix), logPrefix)
		logDate, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}

		if logDate.Before(cutoff) {
			os.Remove(filepath.Join(logDir, name))
		}
	}
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L.Error(msg, args...) }
