package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "clubctl.log")

	log, closeFn, err := SetupLogger(Config{Level: slog.LevelDebug, LogFile: path, Format: "json"})
	if err != nil {
		t.Fatalf("SetupLogger: %v", err)
	}
	WithCommand(log, "status").Debug("checked session")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, `"command":"status"`) || !strings.Contains(line, `"msg":"checked session"`) {
		t.Errorf("unexpected log line: %s", line)
	}
}

func TestSetupLoggerStderrOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unused.log")

	_, closeFn, err := SetupLogger(Config{LogFile: path, LogToStderr: true})
	if err != nil {
		t.Fatalf("SetupLogger: %v", err)
	}
	defer closeFn()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("log file created despite --logtostderr: %v", err)
	}
}
