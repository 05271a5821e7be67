// Package logging configures the process-wide slog logger. The chat window
// owns the terminal, so logs only ever go to a file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/docker/go-units"
)

type Config struct {
	// Path of the log file. Empty disables logging.
	Path  string `yaml:"path,omitempty"`
	Level string `yaml:"level,omitempty"`
	// MaxSize is a human readable size such as "10MB".
	MaxSize    string `yaml:"max_size,omitempty"`
	MaxBackups *int   `yaml:"max_backups,omitempty"`
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup installs the default slog logger described by cfg. With debug set
// the level is forced to debug. The returned closer releases the log file.
func Setup(cfg Config, debug bool) (io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if debug {
		level = slog.LevelDebug
	}

	if cfg.Path == "" {
		slog.SetDefault(slog.New(slog.DiscardHandler))
		return nopCloser{}, nil
	}

	maxSize := int64(DefaultMaxSize)
	if cfg.MaxSize != "" {
		maxSize, err = units.RAMInBytes(cfg.MaxSize)
		if err != nil {
			return nil, fmt.Errorf("invalid log max_size %q: %w", cfg.MaxSize, err)
		}
	}
	maxBackups := DefaultMaxBackups
	if cfg.MaxBackups != nil {
		maxBackups = *cfg.MaxBackups
	}

	file, err := OpenRotatingFile(cfg.Path, maxSize, maxBackups)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(file, &slog.HandlerOptions{Level: level})))
	return file, nil
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
