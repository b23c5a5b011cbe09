// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package connectivity

import (
	"context"
	"log/slog"
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/log"
)

type logger struct{ log.Logger }

func (l logger) state(ctx context.Context, from, to State) {
	l.Log(ctx, slog.LevelInfo, "connection state changed",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	)
}

func (l logger) lost(ctx context.Context, err error) {
	l.Log(ctx, slog.LevelWarn, "connection lost",
		slog.String("error", err.Error()),
	)
}

func (l logger) cycleFailed(
	ctx context.Context,
	failures int,
	limit int,
	delay time.Duration,
	err error,
) {
	l.Log(ctx, slog.LevelWarn, "connection cycle failed",
		slog.Int("failures", failures),
		slog.Int("limit", limit),
		slog.Duration("retry_in", delay),
		slog.String("error", err.Error()),
	)
}

func (l logger) restart(ctx context.Context, err error) {
	l.Err(ctx, err)
}

func (l logger) dropped(ctx context.Context, msg Message) {
	l.Log(ctx, slog.LevelWarn, "inbound queue full; message dropped",
		slog.String("topic", msg.Topic),
		slog.Int("size", len(msg.Payload)),
	)
}

func (l logger) replayed(ctx context.Context, topics int, reconnect bool) {
	l.Log(ctx, slog.LevelInfo, "broker session established",
		slog.Int("subscriptions", topics),
		slog.Bool("reconnect", reconnect),
	)
}
