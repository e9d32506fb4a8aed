package utils

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Logger provides leveled printf-style logging on top of a structured slog handler.
type Logger struct {
	base *slog.Logger
}

// NewLogger creates a text Logger writing to stdout at info level.
func NewLogger() *Logger {
	return NewLoggerWithWriter("", "info", "text", os.Stdout)
}

// NewServiceLogger creates a Logger tagged with the service name, at the given
// level ("debug", "info", "warn", "error") and format ("text" or "json").
func NewServiceLogger(service, level, format string) *Logger {
	return NewLoggerWithWriter(service, level, format, os.Stdout)
}

// NewLoggerWithWriter creates a Logger writing to w.
func NewLoggerWithWriter(service, level, format string, w io.Writer) *Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	l := slog.New(handler)
	if service != "" {
		l = l.With(slog.String("service", service))
	}
	return &Logger{base: l}
}

// NopLogger discards everything. Used in tests.
func NopLogger() *Logger {
	return &Logger{base: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// With returns a Logger that adds the given attribute to every record.
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{base: l.base.With(key, value)}
}

// Slog exposes the underlying structured logger.
func (l *Logger) Slog() *slog.Logger {
	return l.base
}

func (l *Logger) Info(format string, args ...any) {
	l.base.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...any) {
	l.base.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...any) {
	l.base.Error(fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...any) {
	l.base.Debug(fmt.Sprintf(format, args...))
}
