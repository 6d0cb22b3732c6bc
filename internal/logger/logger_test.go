package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dt-pm-tools/atlsync/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(config.LogConfig{Level: "warn"}, &buf, false)

	log.Info("hidden")
	log.Warn("shown", "key", "DIN-58")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered, got: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "key=DIN-58") {
		t.Errorf("expected warn message with attrs, got: %s", out)
	}
}

func TestNew_VerboseForcesDebug(t *testing.T) {
	var buf bytes.Buffer
	log := New(config.LogConfig{Level: "error"}, &buf, true)

	log.Debug("debug line")

	if !strings.Contains(buf.String(), "debug line") {
		t.Errorf("expected debug output with verbose, got: %q", buf.String())
	}
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "atlsync.log")
	var stderr bytes.Buffer
	log := New(config.LogConfig{Level: "info", File: path, MaxSizeMB: 1, MaxBackups: 1}, &stderr, false)

	log.Info("to file")

	if stderr.Len() != 0 {
		t.Errorf("stderr should be unused when a log file is set, got: %s", stderr.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file missing message: %s", data)
	}
}
