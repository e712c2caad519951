package pixcache

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with pipeline-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses the default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithScope adds a scope field to the logger.
func (l *Logger) WithScope(scopeID string) *Logger {
	return &Logger{
		Logger: l.Logger.With("scope", scopeID),
	}
}

// LogLoad logs a completed load.
func (l *Logger) LogLoad(digest string, variant string, err error) {
	if err != nil {
		l.Debug("load failed",
			"digest", digest,
			"variant", variant,
			"error", err,
		)
	} else {
		l.Debug("load completed",
			"digest", digest,
			"variant", variant,
		)
	}
}

// LogScopeSwitch logs a scope switch.
func (l *Logger) LogScopeSwitch(prev, next string, canceledFlights int) {
	l.Info("scope switched",
		"previous", prev,
		"next", next,
		"canceled_flights", canceledFlights,
	)
}

// LogScopePurge logs an asynchronous disk purge.
func (l *Logger) LogScopePurge(scopeID string) {
	l.Debug("purging scope directory",
		"scope", scopeID,
	)
}
