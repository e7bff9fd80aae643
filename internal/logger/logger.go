// Package logger builds the process logger and optional tracing. Nothing in
// here is global: cmd constructs a logger once and injects it.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects log level and output format.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text or json
}

// FromEnv reads LOG_LEVEL and LOG_FORMAT, defaulting to INFO text.
func FromEnv() Config {
	return Config{
		Level:  envOr("LOG_LEVEL", "INFO"),
		Format: envOr("LOG_FORMAT", "text"),
	}
}

// New builds a logger writing to stderr, keeping stdout free for command
// output.
func New(cfg Config) *slog.Logger {
	return NewWriter(os.Stderr, cfg)
}

// NewWriter builds a logger writing to w.
func NewWriter(w io.Writer, cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
