package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config captures the settings needed to build the service logger.
type Config struct {
	// Level is the textual log level (debug, info, warn, error).
	Level string
	// Format controls the output encoding (json or text).
	Format string
	// AddSource toggles slog's source attribution.
	AddSource bool
	// Directory receives the rotated log files; empty disables file output.
	Directory string
	// MaxSizeMB caps a single log file before rotation.
	MaxSizeMB int
	// MaxBackups bounds how many rotated files are kept.
	MaxBackups int
}

// ParseLevel converts textual levels into slog levels, defaulting to info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug", "dbg":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a slog.Logger for the provided writer using the supplied configuration.
func New(w io.Writer, cfg Config) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level), AddSource: cfg.AddSource}
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	default:
		return slog.New(slog.NewTextHandler(w, handlerOpts))
	}
}

// NewRotating builds a logger multi-writing stdout and a size-rotated file
// under cfg.Directory. With no directory configured it logs to stdout only.
func NewRotating(cfg Config) (*slog.Logger, io.Closer, error) {
	if strings.TrimSpace(cfg.Directory) == "" {
		return New(os.Stdout, cfg), nil, nil
	}
	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, nil, err
	}
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 50
	}
	maxBackups := cfg.MaxBackups
	if maxBackups <= 0 {
		maxBackups = 7
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Directory, "relay.log"),
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		Compress:   true,
	}
	return New(io.MultiWriter(os.Stdout, rotator), cfg), rotator, nil
}
