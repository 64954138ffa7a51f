package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var stdout io.Writer = os.Stdout

// Setup initializes the global slog logger with JSON output to stdout.
func Setup() {
	slog.SetDefault(slog.New(NewJSONHandler(stdout, slog.LevelInfo)))
}

func NewJSONHandler(w io.Writer, level slog.Leveler) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

// ParseLevel maps "debug", "info", "warn" and "error" to a level, falling
// back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
