package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerrad567/fbp-core/internal/infrastructure/config"
)

func TestNew_JSONFormat(t *testing.T) {
	cfg := config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}

	logger := New(cfg, "1.0.0")

	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNew_TextFormat(t *testing.T) {
	cfg := config.LoggingConfig{
		Level:  "debug",
		Format: "text",
		Output: "stderr",
	}

	logger := New(cfg, "1.0.0")

	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fbp.log")
	cfg := config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "file",
		File: config.FileLoggingConfig{
			Path:    path,
			MaxSize: 1,
		},
	}

	logger := New(cfg, "1.0.0")
	logger.Info("written to file", "key", "value")

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file = %q, want it to contain the message", data)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected slog.Level
	}{
		{name: "debug level", input: "debug", expected: slog.LevelDebug},
		{name: "info level", input: "info", expected: slog.LevelInfo},
		{name: "warn level", input: "warn", expected: slog.LevelWarn},
		{name: "warning level", input: "warning", expected: slog.LevelWarn},
		{name: "error level", input: "error", expected: slog.LevelError},
		{name: "unknown defaults to info", input: "unknown", expected: slog.LevelInfo},
		{name: "empty defaults to info", input: "", expected: slog.LevelInfo},
		{name: "case insensitive", input: "DEBUG", expected: slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLogger_With(t *testing.T) {
	logger := newStdoutLogger()
	childLogger := logger.With("component", "hardware")

	if childLogger == nil {
		t.Fatal("expected non-nil child logger")
	}

	if childLogger == logger {
		t.Error("expected child logger to be different from parent")
	}

	if childLogger.out != logger.out {
		t.Error("expected child logger to share outputs with parent")
	}
}

func TestLogger_OutputContainsDefaultFields(t *testing.T) {
	var buf bytes.Buffer

	baseHandler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	handler := baseHandler.WithAttrs([]slog.Attr{
		slog.String("service", "fbp"),
		slog.String("version", "test"),
	})

	logger := Bootstrap()
	logger.AddSink("buffer", handler)
	if err := logger.out.deferred.Attach(logger.out.fanout); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	logger.Info("test message", "key", "value")

	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}

	if logEntry["service"] != "fbp" {
		t.Errorf("expected service='fbp', got %v", logEntry["service"])
	}

	if logEntry["msg"] != "test message" {
		t.Errorf("expected msg='test message', got %v", logEntry["msg"])
	}

	if logEntry["key"] != "value" {
		t.Errorf("expected key='value', got %v", logEntry["key"])
	}
}

func TestBootstrap_ReplaysOnConfigure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boot.log")

	logger := Bootstrap()
	component := logger.With("component", "startup")
	component.Info("first")
	logger.Debug("dropped by configured level")
	component.Warn("second")

	if got := logger.out.deferred.Pending(); got != 3 {
		t.Fatalf("Pending() = %d, want 3", got)
	}

	err := logger.Configure(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "file",
		File:   config.FileLoggingConfig{Path: path, MaxSize: 1},
	}, "test")
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	logger.Info("third")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %q", len(lines), data)
	}

	wantMsgs := []string{"first", "second", "third"}
	for i, line := range lines {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("line %d: %v", i, err)
		}
		if entry["msg"] != wantMsgs[i] {
			t.Errorf("line %d msg = %v, want %s", i, entry["msg"], wantMsgs[i])
		}
		if i < 2 && entry["component"] != "startup" {
			t.Errorf("line %d component = %v, want startup", i, entry["component"])
		}
	}
}

func TestLogger_SinksAddAndRemove(t *testing.T) {
	var buf bytes.Buffer
	logger := Bootstrap()
	logger.AddSink("extra", slog.NewTextHandler(&buf, nil))
	if err := logger.out.deferred.Attach(logger.out.fanout); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	logger.Info("before removal")
	if !logger.RemoveSink("extra") {
		t.Fatal("RemoveSink() = false, want true")
	}
	logger.Info("after removal")

	out := buf.String()
	if !strings.Contains(out, "before removal") {
		t.Error("expected record logged before removal")
	}
	if strings.Contains(out, "after removal") {
		t.Error("expected no record after removal")
	}
	if logger.RemoveSink("extra") {
		t.Error("RemoveSink() on missing sink = true, want false")
	}
}

func TestLogger_CloseWithoutFile(t *testing.T) {
	logger := newStdoutLogger()
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

// newStdoutLogger returns an info-level JSON logger writing to stdout.
func newStdoutLogger() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}
