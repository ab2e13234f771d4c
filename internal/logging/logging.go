// Package logging configures the application logger and adapts it for the
// Watermill transports so every component logs through the same handler.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
)

// ProfileProduction selects the JSON handler; any other profile gets the
// human-readable text handler.
const ProfileProduction = "production"

var logLevelMapping = map[slog.Level]slog.Level{
	slog.LevelDebug: slog.LevelDebug,
	slog.LevelInfo:  slog.LevelInfo,
	slog.LevelWarn:  slog.LevelWarn,
	slog.LevelError: slog.LevelError,
}

// New builds the application logger for the given run profile and level.
// Unknown levels fall back to info.
func New(profile, level string) *slog.Logger {
	return NewWithWriter(profile, level, os.Stderr)
}

// NewWithWriter is New with an explicit output writer, used by tests.
func NewWithWriter(profile, level string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(profile, ProfileProduction) {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a textual level to a slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// Watermill adapts the application logger for the transport layer.
func Watermill(log *slog.Logger) watermill.LoggerAdapter {
	if log == nil {
		panic("ltdevents: logger cannot be nil")
	}
	return watermill.NewSlogLoggerWithLevelMapping(log, logLevelMapping)
}
