package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup installs a JSON logger on stdout as the slog default and returns its
// handler so it can later be combined with the database handler.
func Setup(env string) slog.Handler {
	handler := NewJSONHandler(os.Stdout, env)
	slog.SetDefault(slog.New(handler))
	return handler
}

// NewJSONHandler logs at debug level in development and info elsewhere.
func NewJSONHandler(w io.Writer, env string) slog.Handler {
	level := slog.LevelInfo
	if strings.EqualFold(env, "development") {
		level = slog.LevelDebug
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}
