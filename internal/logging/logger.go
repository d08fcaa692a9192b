// Package logging sets up the process logger and records per-stage progress
// of a training run in the registry database.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// #region logger
// NewLogger returns a text logger writing to w. level is one of debug, info,
// warn or error; anything else means info.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// ParseLevel maps a level name to a slog.Level.
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
// #endregion logger
