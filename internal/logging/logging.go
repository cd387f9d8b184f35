// Package logging configures the process-wide slog logger and holds the
// canonical field helpers used across packages.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Canonical log field names.
const (
	KeyOp       = "op"
	KeyNightID  = "night_id"
	KeyTaskID   = "task_id"
	KeyQuality  = "quality"
	KeyPath     = "path"
	KeyProvider = "provider"
	KeyError    = "error"
	KeyDuration = "duration_ms"
)

func Op(name string) slog.Attr      { return slog.String(KeyOp, name) }
func NightID(id int64) slog.Attr    { return slog.Int64(KeyNightID, id) }
func TaskID(id string) slog.Attr    { return slog.String(KeyTaskID, id) }
func Quality(q int) slog.Attr       { return slog.Int(KeyQuality, q) }
func Path(p string) slog.Attr       { return slog.String(KeyPath, p) }
func Provider(p string) slog.Attr   { return slog.String(KeyProvider, p) }
func DurationMS(ms int64) slog.Attr { return slog.Int64(KeyDuration, ms) }
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// ParseLevel maps a config string to a slog level. Unknown values are an error.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// DefaultLogPath returns the log file location.
// Uses $XDG_STATE_HOME/sleeptracker/sleeptracker.log, falling back to
// ~/.local/state/sleeptracker/sleeptracker.log.
func DefaultLogPath() string {
	if p := os.Getenv("SLEEPTRACKER_LOG"); p != "" {
		return p
	}
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "sleeptracker", "sleeptracker.log")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "sleeptracker.log")
	}
	return filepath.Join(home, ".local", "state", "sleeptracker", "sleeptracker.log")
}

// New returns a JSON logger writing to w.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Setup opens (appending) the log file at path, installs a JSON logger on
// it as the slog default and returns it with a closer for the file.
// The TUI owns the terminal, so logs never go to stderr.
func Setup(path string, level slog.Level) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := New(f, level)
	slog.SetDefault(logger)
	return logger, f, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
