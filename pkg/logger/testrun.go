package logger

import (
	"bytes"
	"io"
	"log/slog"
)

// NewTestHandler drops output but honours the level, so debug-only payloads are
// still skipped under test.
func NewTestHandler(level slog.Level) slog.Handler {
	return slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: level})
}

// NewRecorder returns a JSON logger writing one object per line into the returned
// buffer, for tests that assert on log attributes.
func NewRecorder(level slog.Level) (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level})), buf
}
