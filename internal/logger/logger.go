package logger

import (
	"log/slog"
	"os"
	"strings"
)

// NewJSONLogger initializes a structured logger using slog. It outputs
// JSON-formatted logs to stdout, suitable for production. The minimum level
// is read from LOG_LEVEL (debug, info, warn, error) and defaults to info.
func NewJSONLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: false,
	})
	return slog.New(handler)
}
