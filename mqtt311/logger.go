// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt311

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/log"
	paho "github.com/eclipse/paho.mqtt.golang"
)

type logger struct{ log.Logger }

func (l logger) event(ctx context.Context, msg, topic string) {
	l.Log(ctx, slog.LevelDebug, msg, slog.String("topic", topic))
}

func (l logger) dropped(ctx context.Context, topic string) {
	l.Log(ctx, slog.LevelWarn, "inbound buffer full; publish dropped",
		slog.String("topic", topic),
	)
}

// libraryLogger adapts the Paho package loggers to slog.
type libraryLogger struct {
	log   log.Logger
	level slog.Level
}

func (l libraryLogger) Println(v ...any) {
	msg := strings.TrimSuffix(fmt.Sprintln(v...), "\n")
	l.log.Log(context.Background(), l.level, msg,
		slog.String("source", "paho"),
	)
}

func (l libraryLogger) Printf(format string, v ...any) {
	l.log.Log(context.Background(), l.level, fmt.Sprintf(format, v...),
		slog.String("source", "paho"),
	)
}

// SetLibraryLogger routes the process-wide Paho diagnostics to the logger.
// Paho's DEBUG output is only forwarded when the logger enables debug.
func SetLibraryLogger(l *slog.Logger) {
	wrapped := log.Wrap(l)
	paho.ERROR = libraryLogger{wrapped, slog.LevelError}
	paho.CRITICAL = libraryLogger{wrapped, slog.LevelError}
	paho.WARN = libraryLogger{wrapped, slog.LevelWarn}
	if wrapped.Enabled(context.Background(), slog.LevelDebug) {
		paho.DEBUG = libraryLogger{wrapped, slog.LevelDebug}
	}
}
