// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package log

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

type (
	// Logger is a wrapper around an slog.Logger with additional helpers and nil
	// checking; the zero value discards everything.
	Logger struct{ logger *slog.Logger }

	// Attrs represents an object that exposes extra slog attributes to log.
	Attrs interface {
		Attrs() []slog.Attr
	}
)

// Wrap the slog logger.
func Wrap(logger *slog.Logger) Logger {
	return Logger{logger}
}

// With returns a logger that adds the given attributes to every record.
func (l Logger) With(args ...any) Logger {
	if l.logger == nil {
		return l
	}
	return Logger{l.logger.With(args...)}
}

// Enabled reports whether the level would be logged.
func (l Logger) Enabled(ctx context.Context, level slog.Level) bool {
	return l.logger != nil && l.logger.Enabled(ctx, level)
}

// Log is designed to build logging wrappers; it should not be called directly.
// See: https://pkg.go.dev/log/slog#hdr-Wrapping_output_methods
func (l Logger) Log(
	ctx context.Context,
	level slog.Level,
	msg string,
	attrs ...slog.Attr,
) {
	if !l.Enabled(ctx, level) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])

	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.AddAttrs(attrs...)
	_ = l.logger.Handler().Handle(ctx, r)
}

// Err logs an error with structured logging.
func (l Logger) Err(ctx context.Context, err error, attrs ...slog.Attr) {
	if err == nil {
		return
	}
	if a, ok := err.(Attrs); ok {
		attrs = append(a.Attrs(), attrs...)
	}
	l.Log(ctx, slog.LevelError, err.Error(), attrs...)
}

// Warn logs an error at warning level, for failures that are handled.
func (l Logger) Warn(ctx context.Context, err error, attrs ...slog.Attr) {
	if err == nil {
		return
	}
	if a, ok := err.(Attrs); ok {
		attrs = append(a.Attrs(), attrs...)
	}
	l.Log(ctx, slog.LevelWarn, err.Error(), attrs...)
}

// Discard is a handler-backed logger that drops every record; useful to tell
// "explicitly silent" from "not configured" in options.
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
