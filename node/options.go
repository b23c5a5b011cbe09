// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package node

import (
	"log/slog"
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/connectivity"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/options"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/wallclock"
	"github.com/ObsidianArch02/eco-exoskeleton-project/metrics"
)

type (
	// Option represents a single node option.
	Option interface{ node(*Options) }

	// Options are the resolved node options.
	Options struct {
		TopicPattern string
		LoopYield    time.Duration
		Connectivity []connectivity.Option

		Clock   wallclock.WallClock
		Logger  *slog.Logger
		Metrics *metrics.Metrics
	}

	// WithTopicPattern sets the topic layout; see protocol.NewTopics.
	WithTopicPattern string

	// WithLoopYield sets the idle pause of the control loop.
	WithLoopYield time.Duration

	withConnectivity []connectivity.Option
	withClock        struct{ wallclock.WallClock }
	withLogger       struct{ *slog.Logger }
	withMetrics      struct{ *metrics.Metrics }
)

// DefaultLoopYield is the idle pause between control loop steps.
const DefaultLoopYield = 10 * time.Millisecond

// WithConnectivity passes options through to the connectivity manager.
func WithConnectivity(opts ...connectivity.Option) Option {
	return withConnectivity(opts)
}

// WithClock sets the time source shared by every component.
func WithClock(c wallclock.WallClock) Option {
	return withClock{c}
}

// WithLogger enables logging with the provided slog logger.
func WithLogger(l *slog.Logger) Option {
	return withLogger{l}
}

// WithMetrics records the node's metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return withMetrics{m}
}

// Apply resolves the provided list of options.
func (o *Options) Apply(
	opts []Option,
	rest ...Option,
) {
	for opt := range options.Apply[Option](opts, rest...) {
		opt.node(o)
	}
}

func (o *Options) node(opt *Options) {
	if o != nil {
		*opt = *o
	}
}

func (o WithTopicPattern) node(opt *Options) {
	opt.TopicPattern = string(o)
}

func (o WithLoopYield) node(opt *Options) {
	opt.LoopYield = time.Duration(o)
}

func (o withConnectivity) node(opt *Options) {
	opt.Connectivity = append(opt.Connectivity, o...)
}

func (o withClock) node(opt *Options) {
	opt.Clock = o.WallClock
}

func (o withLogger) node(opt *Options) {
	opt.Logger = o.Logger
}

func (o withMetrics) node(opt *Options) {
	opt.Metrics = o.Metrics
}
