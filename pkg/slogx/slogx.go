package slogx

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config describes the process-wide logger. The service binary builds
// exactly one of these from its environment.
type Config struct {
	Service string
	Version string
	Env     string    // "dev" enables source locations
	Level   string    // "debug", "info", "warn", "error"
	Format  string    // "json" (default) or "text"
	Writer  io.Writer // defaults to os.Stdout; overridable for tests
}

// New builds the root logger, installs it as the slog default and returns
// it. Request- and attempt-scoped loggers derive from it through
// WithContext and WithCorrelationID rather than from this constructor.
func New(cfg Config) *slog.Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}

	opts := &slog.HandlerOptions{
		AddSource: cfg.Env == "dev",
		Level:     ParseLevel(cfg.Level),
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler).With(
		slog.String("service", cfg.Service),
		slog.String("version", cfg.Version),
		slog.String("env", cfg.Env),
	)

	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a config string to a slog.Level. Unknown values fall
// back to info; a misconfigured level must not stop the service booting.
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
