package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// LevelTrace sits below DEBUG and carries per-reading sensor chatter.
const LevelTrace = slog.LevelDebug - 4

var traceOn atomic.Bool

// SetTrace switches trace output on or off.
func SetTrace(on bool) { traceOn.Store(on) }

// TraceEnabled reports whether trace output is on.
func TraceEnabled() bool { return traceOn.Load() }

// Trace logs at LevelTrace when tracing is on.
func Trace(logger *slog.Logger, msg string, args ...any) {
	if traceOn.Load() {
		logger.Log(context.Background(), LevelTrace, msg, args...)
	}
}

// TraceDefault is Trace on the default logger.
func TraceDefault(msg string, args ...any) {
	Trace(slog.Default(), msg, args...)
}
