package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupLoggerWritesTurnLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turns.log")
	logger, cleanup := SetupLogger(path, slog.LevelInfo)

	logger.Info("session started", "session", "abc")
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read turn log: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("turn log is not JSON: %v", err)
	}
	if entry["msg"] != "session started" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestSetupLoggerFallsBackToStderr(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "turns.log")
	logger, cleanup := SetupLogger(path, slog.LevelInfo)

	if logger == nil {
		t.Fatal("no logger returned on fallback")
	}
	if err := cleanup(); err != nil {
		t.Errorf("fallback cleanup: %v", err)
	}
}

func TestSetupLoggerWithWritersFansOut(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("turn processed", "session", "abc", "intent", "weather_query")

	if !strings.Contains(stderr.String(), "turn processed") {
		t.Errorf("stderr output missing message: %q", stderr.String())
	}

	var entry map[string]any
	if err := json.Unmarshal(file.Bytes(), &entry); err != nil {
		t.Fatalf("file output is not JSON: %v", err)
	}
	if entry["msg"] != "turn processed" || entry["intent"] != "weather_query" {
		t.Errorf("unexpected JSON entry: %v", entry)
	}
}

func TestSetupLoggerWithWritersLevel(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelWarn)

	logger.Debug("hidden")
	logger.Info("also hidden")

	if stderr.Len() != 0 || file.Len() != 0 {
		t.Errorf("below-level records written: stderr=%q file=%q", stderr.String(), file.String())
	}
}
