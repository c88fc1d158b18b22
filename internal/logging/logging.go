// Package logging sets up the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init configures the default slog logger. Output is JSON when
// URLRISK_JSON_LOG is 1/true/json, text otherwise; URLRISK_LOG_LEVEL picks
// the level.
func Init(service string) *slog.Logger {
	return InitWriter(os.Stdout, service, os.Getenv("URLRISK_JSON_LOG"), os.Getenv("URLRISK_LOG_LEVEL"))
}

// InitWriter is Init with explicit output and settings.
func InitWriter(w io.Writer, service, mode, level string) *slog.Logger {
	json := isJSON(mode)
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(handler).With("service", service)
	slog.SetDefault(logger)
	logger.Debug("logging initialized", "json", json)
	return logger
}

// ParseLevel maps debug/warn/error onto slog levels; anything else is info.
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

func isJSON(mode string) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "1", "true", "json":
		return true
	}
	return false
}
