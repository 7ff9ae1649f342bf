// Package logger provides structured logging for grabsome.
package logger

import (
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))
}

// Options configures the logger.
type Options struct {
	Debug  bool         // Enable debug level logging
	Quiet  bool         // Only show errors
	JSON   bool         // Output as JSON
	Output io.Writer    // Output destination (default: stderr)
	Logger *slog.Logger // Custom logger (overrides all other options)
}

// Init initializes the logger with the specified options.
func Init(opts Options) {
	if opts.Logger != nil {
		current.Store(opts.Logger)
		return
	}

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	if opts.Quiet {
		level = slog.LevelError
	}

	output := opts.Output
	if output == nil {
		output = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(output, handlerOpts)
	}

	current.Store(slog.New(handler))
}

// SetLogger sets a custom slog.Logger. This allows embedding applications
// to route grabsome logs through their own logging setup.
func SetLogger(l *slog.Logger) {
	if l != nil {
		current.Store(l)
	}
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	current.Load().Debug(msg, args...)
}

// Info logs an info message.
func Info(msg string, args ...any) {
	current.Load().Info(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	current.Load().Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	current.Load().Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return current.Load().With(args...)
}
