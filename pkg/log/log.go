// Package log configures the process-wide slog logger.
package log

import (
	"log/slog"
	"os"
)

// Setup installs a text logger on stderr as the slog default. Level names are the slog ones
// (debug, info, warn, error, case-insensitive, with optional offsets such as "info+2");
// anything else logs at info.
func Setup(logLevel string) {
	level := slog.LevelInfo

	err := level.UnmarshalText([]byte(logLevel))
	if err != nil {
		level = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// WithModule returns the default logger tagged with the component name.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
