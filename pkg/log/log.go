// Package log configures structured logging for stageflow binaries and libraries.
package log

import (
	"log/slog"
	"os"
)

// Setup installs a text handler on stderr as the default slog logger.
func Setup(logLevel string) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(logLevel),
	})))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(logLevel string) slog.Level {
	switch logLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}

// OrDefault returns logger, or a module logger when logger is nil.
func OrDefault(logger *slog.Logger, module string) *slog.Logger {
	if logger != nil {
		return logger
	}

	return WithModule(module)
}
