// Package log provides structured logging for go-face.
// It wraps slog with sensible defaults for production use.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	logger *slog.Logger
	once   sync.Once
)

// Options controls how the global logger is built.
type Options struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string
	// Format is "json" or "text". Empty picks json when GO_ENV=production.
	Format string
	// Output defaults to os.Stdout.
	Output io.Writer
}

// Init initializes the global logger with the specified level.
// Valid levels: "debug", "info", "warn", "error"
func Init(level string) {
	InitWith(Options{Level: level})
}

// InitWith initializes the global logger from opts. Only the first call wins.
func InitWith(opts Options) {
	once.Do(func() {
		logger = New(opts)
		slog.SetDefault(logger)
	})
}

// New builds a standalone logger without touching the global one.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	hopts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	format := strings.ToLower(opts.Format)
	if format == "" && os.Getenv("GO_ENV") == "production" {
		format = "json"
	}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(out, hopts))
	}
	return slog.New(slog.NewTextHandler(out, hopts))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
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

// L returns the global logger instance.
func L() *slog.Logger {
	if logger == nil {
		Init("info")
	}
	return logger
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Component returns l (or the global logger when l is nil) tagged with a
// component attribute.
func Component(l *slog.Logger, name string) *slog.Logger {
	if l == nil {
		l = L()
	}
	return l.With("component", name)
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}

// WarnOnce emits a warning the first time each key is seen.
// The zero value is ready to use.
type WarnOnce struct {
	seen sync.Map
}

// Warn logs msg on l unless key has already been reported.
func (w *WarnOnce) Warn(l *slog.Logger, key, msg string, args ...any) bool {
	if _, loaded := w.seen.LoadOrStore(key, struct{}{}); loaded {
		return false
	}
	l.Warn(msg, args...)
	return true
}

// Reset forgets every reported key.
func (w *WarnOnce) Reset() {
	w.seen.Range(func(k, _ any) bool {
		w.seen.Delete(k)
		return true
	})
}
