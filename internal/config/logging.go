// Package config loads engine configuration and sets up logging.
package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger builds the session logger: readable text on stderr for whoever
// is running the conversation, JSON appended to logFile for inspecting turns
// afterwards. The cleanup function closes the turn log file.
//
// When the turn log file cannot be opened the session still runs, logging to
// stderr only.
func SetupLogger(logFile string, level slog.Level) (*slog.Logger, func() error) {
	opts := &slog.HandlerOptions{Level: level}
	stderrOnly := slog.New(slog.NewTextHandler(os.Stderr, opts))

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		stderrOnly.Warn("turn log file unavailable, keeping stderr only", "file", logFile, "error", err)
		return stderrOnly, func() error { return nil }
	}

	logger := slog.New(slogmulti.Fanout(
		slog.NewTextHandler(os.Stderr, opts),
		slog.NewJSONHandler(file, opts),
	))
	return logger, file.Close
}

// SetupLoggerWithWriters is SetupLogger with injectable writers so tests can
// assert on both streams.
func SetupLoggerWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	return slog.New(slogmulti.Fanout(
		slog.NewTextHandler(stderr, opts),
		slog.NewJSONHandler(file, opts),
	))
}
