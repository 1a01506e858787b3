// Package logging sets up the process-wide structured logger.
package logging

import (
	"log/slog"
	"os"
)

// Setup installs a text handler on stderr as the default logger.
// Debug switches the level from info to debug.
func Setup(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
