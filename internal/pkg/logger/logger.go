package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger defines the interface for logging messages.
type Logger interface {
	Error(msg string, err error)
	Warn(msg string)
	Info(msg string)
	Debug(msg string)
	// With returns a Logger that adds the given key/value pairs to every record.
	With(args ...any) Logger
}

// Options configures the slog handler behind the Logger.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	Output io.Writer
}

type slogLogger struct {
	logger *slog.Logger
}

// New creates a Logger backed by log/slog.
func New(opts Options) Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	handlerOpts := &slog.HandlerOptions{Level: parseLevel(opts.Level)}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	return &slogLogger{logger: slog.New(handler).With("service", "booking-reminder")}
}

// NewNop returns a Logger that discards everything. Used by tests.
func NewNop() Logger {
	return &slogLogger{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
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

// Error logs an error message together with the causing error, if any.
func (l *slogLogger) Error(msg string, err error) {
	if err != nil {
		l.logger.Error(msg, "error", err.Error())
		return
	}
	l.logger.Error(msg)
}

// Warn logs a warning message.
func (l *slogLogger) Warn(msg string) {
	l.logger.Warn(msg)
}

// Info logs an informational message.
func (l *slogLogger) Info(msg string) {
	l.logger.Info(msg)
}

// Debug logs a debug message.
func (l *slogLogger) Debug(msg string) {
	l.logger.Debug(msg)
}

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...)}
}
