// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package actuator

import (
	"log/slog"

	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/options"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/wallclock"
	"github.com/ObsidianArch02/eco-exoskeleton-project/metrics"
)

type (
	// Option represents a single supervisor option.
	Option interface{ supervisor(*Options) }

	// Options are the resolved supervisor options.
	Options struct {
		Clock      wallclock.WallClock
		Logger     *slog.Logger
		Metrics    *metrics.Metrics
		RunHandler func(Record)
	}

	withClock   struct{ wallclock.WallClock }
	withLogger  struct{ *slog.Logger }
	withMetrics struct{ *metrics.Metrics }

	// WithRunHandler registers a callback invoked when a run finishes.
	WithRunHandler func(Record)
)

// WithClock sets the time source of run deadlines.
func WithClock(c wallclock.WallClock) Option { return withClock{c} }

// WithLogger enables logging with the provided slog logger.
func WithLogger(l *slog.Logger) Option { return withLogger{l} }

// WithMetrics records command and run outcomes.
func WithMetrics(m *metrics.Metrics) Option { return withMetrics{m} }

// Apply resolves the provided list of options.
func (o *Options) Apply(opts []Option, rest ...Option) {
	for opt := range options.Apply[Option](opts, rest...) {
		opt.supervisor(o)
	}
}

func (o *Options) supervisor(opt *Options) {
	if o != nil {
		*opt = *o
	}
}

func (o withClock) supervisor(opt *Options)      { opt.Clock = o.WallClock }
func (o withLogger) supervisor(opt *Options)     { opt.Logger = o.Logger }
func (o withMetrics) supervisor(opt *Options)    { opt.Metrics = o.Metrics }
func (o WithRunHandler) supervisor(opt *Options) { opt.RunHandler = o }
