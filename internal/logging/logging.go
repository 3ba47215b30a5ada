// Package logging builds the process logger from the configured level.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// New returns a text logger writing to w at level (debug, info, warn, error).
func New(level string, w io.Writer) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler).With("app", "shoku"), nil
}

func ParseLevel(level string) (slog.Level, error) {
	var lvl slog.Level
	v := strings.TrimSpace(level)
	if v == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return 0, fmt.Errorf("invalid log level %q (expected debug, info, warn or error)", level)
	}
	return lvl, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
