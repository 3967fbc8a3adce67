package core

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var analystLogger atomic.Pointer[slog.Logger]

func init() {
	ResetLogger()
}

// Logger is the global logger shared by the pipeline, tools and server.
// By default it writes text records to stderr at level info.
func Logger() *slog.Logger {
	return analystLogger.Load()
}

// SetLogger replaces the global logger and the slog default used by the
// tools package. A nil value is ignored.
func SetLogger(l *slog.Logger) {
	if l != nil {
		analystLogger.Store(l)
		slog.SetDefault(l)
	}
}

func ResetLogger() {
	SetLogger(NewLogger(os.Stderr, "info", "text"))
}

// NewLogger builds a logger for the given level name (debug, info, warn, error)
// and format (text or json). Unknown levels fall back to info.
func NewLogger(w io.Writer, level string, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
