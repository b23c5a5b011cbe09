// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package actuator

import (
	"context"
	"log/slog"

	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/log"
)

type logger struct{ log.Logger }

func (l logger) started(ctx context.Context, r *Run) {
	attrs := []slog.Attr{
		slog.String("run_id", r.ID.String()),
		slog.String("action", r.Action.Name),
		slog.Uint64("level", uint64(r.Level)),
		slog.Time("deadline", r.Deadline),
	}
	for k, v := range r.Params {
		attrs = append(attrs, slog.Float64("param_"+k, v))
	}
	l.Log(ctx, slog.LevelInfo, "run started", attrs...)
}

func (l logger) finished(ctx context.Context, rec Record) {
	attrs := []slog.Attr{
		slog.String("run_id", rec.ID.String()),
		slog.String("action", rec.Action),
		slog.String("phase", rec.Phase.String()),
		slog.Duration("elapsed", rec.Elapsed),
	}
	level := slog.LevelInfo
	if rec.Cause != nil {
		level = slog.LevelError
		attrs = append(attrs, slog.String("cause", rec.Cause.Error()))
	}
	l.Log(ctx, level, "run finished", attrs...)
}

func (l logger) instant(ctx context.Context, a *Action, level uint32) {
	l.Log(ctx, slog.LevelInfo, "action applied",
		slog.String("action", a.Name),
		slog.Uint64("level", uint64(level)),
	)
}
