package logger

import (
	"log/slog"
	"os"
	"strings"
)

// HandlerFunc builds the slog handler for a level. NewCloudRunHandler, NewTextHandler
// and NewTestHandler all fit.
type HandlerFunc func(level slog.Level) slog.Handler

// New builds the service logger from the LOGLEVEL setting.
func New(level string, newHandler HandlerFunc) *slog.Logger {
	return slog.New(newHandler(ParseLevel(level)))
}

// NewTextHandler writes human readable logs to stderr, for local runs.
func NewTextHandler(level slog.Level) slog.Handler {
	return slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
}

// ParseLevel accepts slog level names in any case, with an optional offset such as
// "debug-4", plus "warning". Anything else logs at info.
func ParseLevel(level string) slog.Level {
	level = strings.TrimSpace(level)
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
