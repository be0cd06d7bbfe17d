package slogutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"symnav/internal/config"
)

func TestHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("Workspace loaded", "documents", 12, "root", "/repo")

	output := buf.String()
	for _, want := range []string{"[info]", "Workspace loaded", " | ", "documents=12", "root=/repo"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestHandler_QuotesSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("msg", "line", "public void Activate()")

	if !strings.Contains(buf.String(), `line="public void Activate()"`) {
		t.Errorf("value with spaces should be quoted, got: %s", buf.String())
	}
}

func TestHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo).WithGroup("rename")

	logger.Info("planned", slog.Group("plan", "files", 2), "edits", 4)

	output := buf.String()
	if !strings.Contains(output, "rename.plan.files=2") {
		t.Errorf("expected nested group key, got: %s", output)
	}
	if !strings.Contains(output, "rename.edits=4") {
		t.Errorf("expected prefixed key, got: %s", output)
	}
}

func TestHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	if strings.Contains(output, "debug message") || strings.Contains(output, "info message") {
		t.Errorf("debug/info should be filtered, got: %s", output)
	}
	if !strings.Contains(output, "warn message") || !strings.Contains(output, "error message") {
		t.Errorf("warn/error should be included, got: %s", output)
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"silent", Silent},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := LevelFromString(tt.input); got != tt.expected {
				t.Errorf("LevelFromString(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		verbosity int
		quiet     bool
		expected  slog.Level
	}{
		{0, false, slog.LevelWarn},
		{1, false, slog.LevelInfo},
		{2, false, slog.LevelDebug},
		{5, true, Silent},
	}

	for _, tt := range tests {
		got := LevelFromVerbosity(tt.verbosity, tt.quiet, slog.LevelWarn)
		if got != tt.expected {
			t.Errorf("LevelFromVerbosity(%d, %v) = %v, want %v", tt.verbosity, tt.quiet, got, tt.expected)
		}
	}
}

func TestTeeHandler(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h1 := NewHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelInfo})
	h2 := NewHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelWarn})

	logger := slog.New(NewTeeHandler(h1, h2))
	logger.Info("info message")
	logger.Warn("warn message")

	if !strings.Contains(buf1.String(), "info message") || !strings.Contains(buf1.String(), "warn message") {
		t.Errorf("buf1 should contain both messages, got: %s", buf1.String())
	}
	if strings.Contains(buf2.String(), "info message") {
		t.Error("buf2 should not contain info message")
	}
	if !strings.Contains(buf2.String(), "warn message") {
		t.Error("buf2 should contain warn message")
	}
}

func TestFactory_FileAndJSON(t *testing.T) {
	root := t.TempDir()
	f := NewFactory(root, config.LoggingConfig{Format: "json", Level: "error", File: ".symnav/logs/symnav.log"})
	defer f.Close()

	var console bytes.Buffer
	logger, err := f.Logger(&console, nil)
	if err != nil {
		t.Fatalf("Logger() error = %v", err)
	}
	logger.Info("committed", "files", 2)

	if console.Len() != 0 {
		t.Errorf("console at error level should be empty, got: %s", console.String())
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(root, ".symnav", "logs", "symnav.log"))
	if err != nil {
		t.Fatalf("log file missing: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"committed"`) {
		t.Errorf("log file should hold JSON records, got: %s", data)
	}
}

func TestFactory_EffectiveLevel(t *testing.T) {
	f := NewFactory("", config.LoggingConfig{Level: "info"})
	if got := f.EffectiveLevel(nil); got != slog.LevelInfo {
		t.Errorf("EffectiveLevel(nil) = %v, want info", got)
	}
	debug := slog.LevelDebug
	if got := f.EffectiveLevel(&debug); got != slog.LevelDebug {
		t.Errorf("EffectiveLevel(debug) = %v, want debug", got)
	}
	if got := NewFactory("", config.LoggingConfig{}).EffectiveLevel(nil); got != slog.LevelWarn {
		t.Errorf("EffectiveLevel(empty) = %v, want warn", got)
	}
}

func TestNewDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	logger.Error("error")
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("discard logger should not be enabled")
	}
}
