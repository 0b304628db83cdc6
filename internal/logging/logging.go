// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// New returns a text logger at the given level writing to path. An empty
// path writes to fallback; a nil fallback discards. The returned close
// function is never nil.
func New(level slog.Level, path string, fallback io.Writer) (*slog.Logger, func() error, error) {
	noop := func() error { return nil }
	if path == "" {
		if fallback == nil {
			return Discard(), noop, nil
		}
		return slog.New(slog.NewTextHandler(fallback, &slog.HandlerOptions{Level: level})), noop, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, noop, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, noop, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})), f.Close, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
