// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package sensor

import (
	"log/slog"

	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/options"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/wallclock"
	"github.com/ObsidianArch02/eco-exoskeleton-project/metrics"
)

type (
	// Option represents a single pipeline option.
	Option interface{ pipeline(*Options) }

	// Options are the resolved pipeline options.
	Options struct {
		Clock   wallclock.WallClock
		Logger  *slog.Logger
		Metrics *metrics.Metrics
	}

	withClock   struct{ wallclock.WallClock }
	withLogger  struct{ *slog.Logger }
	withMetrics struct{ *metrics.Metrics }
)

// WithClock sets the time source of the schedules.
func WithClock(c wallclock.WallClock) Option { return withClock{c} }

// WithLogger enables logging with the provided slog logger.
func WithLogger(l *slog.Logger) Option { return withLogger{l} }

// WithMetrics records the latest value of every channel.
func WithMetrics(m *metrics.Metrics) Option { return withMetrics{m} }

// Apply resolves the provided list of options.
func (o *Options) Apply(opts []Option, rest ...Option) {
	for opt := range options.Apply[Option](opts, rest...) {
		opt.pipeline(o)
	}
}

func (o *Options) pipeline(opt *Options) {
	if o != nil {
		*opt = *o
	}
}

func (o withClock) pipeline(opt *Options)   { opt.Clock = o.WallClock }
func (o withLogger) pipeline(opt *Options)  { opt.Logger = o.Logger }
func (o withMetrics) pipeline(opt *Options) { opt.Metrics = o.Metrics }
