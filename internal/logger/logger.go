// Package logger builds the process-wide slog.Logger from LogConfig.
package logger

import (
	"io"
	"log/slog"
	"strings"

	"github.com/dt-pm-tools/atlsync/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a text logger writing to stderr, or to a size-rotated file when
// cfg.File is set. verbose forces debug level.
func New(cfg config.LogConfig, stderr io.Writer, verbose bool) *slog.Logger {
	var w io.Writer = stderr
	if cfg.File != "" {
		w = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
	}

	level := ParseLevel(cfg.Level)
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
