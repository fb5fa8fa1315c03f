package core

import (
	"log/slog"
	"sync/atomic"
)

// logger holds a caller-supplied logger; nil means use the cached default.
// Named logger rather than log to keep the stdlib package name free.
var logger atomic.Pointer[slog.Logger]

// defaultLogger caches slog.Default().With("component", ...) so Logger does
// not allocate on every call. SetLogger(nil) clears it, which is how callers
// pick up a later slog.SetDefault.
var defaultLogger atomic.Pointer[slog.Logger]

// Logger returns the package logger. Safe for concurrent use.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	l := slog.Default().With("component", "nodeserver")
	if defaultLogger.CompareAndSwap(nil, l) {
		return l
	}
	if l2 := defaultLogger.Load(); l2 != nil {
		return l2
	}
	return l
}

// SetLogger replaces the package logger. nil restores the default.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
	defaultLogger.Store(nil)
}
