// Package logging configures the slog handlers used across the service.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects the minimum level (debug, info, warn, error), the output
// format (text, json) and an optional size-rotated log file.
type Config struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// New builds a logger writing to w. A nil writer logs to stdout.
func New(cfg Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With("service", "document-processor")
}

// Writer tees out into cfg.File when one is set. The file rotates once it
// reaches MaxSizeMB and keeps MaxBackups old copies. The closer releases it.
func Writer(cfg Config, out io.Writer) (io.Writer, io.Closer) {
	if cfg.File == "" {
		return out, nopCloser{}
	}
	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}
	return io.MultiWriter(out, file), file
}

// Init installs a stdout logger, plus the rotating file if configured, as the
// process default. Close the returned closer before exit.
func Init(cfg Config) (*slog.Logger, io.Closer) {
	w, closer := Writer(cfg, os.Stdout)
	logger := New(cfg, w)
	slog.SetDefault(logger)
	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// WithRequestID decorates logger with the chi request id carried by ctx, if any.
func WithRequestID(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if id := middleware.GetReqID(ctx); id != "" {
		return logger.With("request_id", id)
	}
	return logger
}
