// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package connectivity

import (
	"log/slog"
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/options"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/wallclock"
	"github.com/ObsidianArch02/eco-exoskeleton-project/metrics"
)

type (
	// Option represents a single connectivity manager option.
	Option interface{ manager(*Options) }

	// Options are the resolved connectivity manager options.
	Options struct {
		LinkAttempts     uint64
		LinkRetryDelay   time.Duration
		CycleRetryDelay  time.Duration
		MaxFailedCycles  int
		ResubscribeTopic string
		QueueSize        int

		Clock        wallclock.WallClock
		Logger       *slog.Logger
		Metrics      *metrics.Metrics
		StateHandler func(from, to State)
		Restart      func(error)
	}

	// WithLinkAttempts bounds the link attempts made in one cycle.
	WithLinkAttempts uint64

	// WithLinkRetryDelay sets the fixed delay between link attempts.
	WithLinkRetryDelay time.Duration

	// WithCycleRetryDelay sets the delay after a failed cycle.
	WithCycleRetryDelay time.Duration

	// WithMaxFailedCycles sets how many consecutive failed cycles are
	// tolerated before a restart is requested.
	WithMaxFailedCycles int

	// WithResubscribeTopic sets the reserved topic of the resubscription
	// signal.
	WithResubscribeTopic string

	// WithQueueSize bounds the inbound message queue.
	WithQueueSize int

	withClock   struct{ wallclock.WallClock }
	withLogger  struct{ *slog.Logger }
	withMetrics struct{ *metrics.Metrics }

	// WithStateHandler registers a callback invoked on every state change.
	WithStateHandler func(from, to State)

	// WithRestartHandler registers a callback invoked exactly once when the
	// failed cycle threshold is reached.
	WithRestartHandler func(error)
)

// Default connectivity settings.
const (
	DefaultLinkAttempts     = 20
	DefaultLinkRetryDelay   = 500 * time.Millisecond
	DefaultCycleRetryDelay  = 5 * time.Second
	DefaultMaxFailedCycles  = 5
	DefaultResubscribeTopic = "internal/resubscribe"
	DefaultQueueSize        = 64
)

// WithClock sets the time source used for retry delays.
func WithClock(c wallclock.WallClock) Option {
	return withClock{c}
}

// WithLogger enables logging with the provided slog logger.
func WithLogger(l *slog.Logger) Option {
	return withLogger{l}
}

// WithMetrics records connection metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return withMetrics{m}
}

// Apply resolves the provided list of options.
func (o *Options) Apply(opts []Option, rest ...Option) {
	for opt := range options.Apply[Option](opts, rest...) {
		opt.manager(o)
	}
}

func (o *Options) manager(opt *Options) {
	if o != nil {
		*opt = *o
	}
}

func (o *Options) defaults() {
	if o.LinkAttempts == 0 {
		o.LinkAttempts = DefaultLinkAttempts
	}
	if o.LinkRetryDelay == 0 {
		o.LinkRetryDelay = DefaultLinkRetryDelay
	}
	if o.CycleRetryDelay == 0 {
		o.CycleRetryDelay = DefaultCycleRetryDelay
	}
	if o.MaxFailedCycles <= 0 {
		o.MaxFailedCycles = DefaultMaxFailedCycles
	}
	if o.ResubscribeTopic == "" {
		o.ResubscribeTopic = DefaultResubscribeTopic
	}
	if o.QueueSize <= 0 {
		o.QueueSize = DefaultQueueSize
	}
	o.Clock = wallclock.OrSystem(o.Clock)
}

func (o WithLinkAttempts) manager(opt *Options) {
	opt.LinkAttempts = uint64(o)
}

func (o WithLinkRetryDelay) manager(opt *Options) {
	opt.LinkRetryDelay = time.Duration(o)
}

func (o WithCycleRetryDelay) manager(opt *Options) {
	opt.CycleRetryDelay = time.Duration(o)
}

func (o WithMaxFailedCycles) manager(opt *Options) {
	opt.MaxFailedCycles = int(o)
}

func (o WithResubscribeTopic) manager(opt *Options) {
	opt.ResubscribeTopic = string(o)
}

func (o WithQueueSize) manager(opt *Options) {
	opt.QueueSize = int(o)
}

func (o withClock) manager(opt *Options) {
	opt.Clock = o.WallClock
}

func (o withLogger) manager(opt *Options) {
	opt.Logger = o.Logger
}

func (o withMetrics) manager(opt *Options) {
	opt.Metrics = o.Metrics
}

func (o WithStateHandler) manager(opt *Options) {
	opt.StateHandler = o
}

func (o WithRestartHandler) manager(opt *Options) {
	opt.Restart = o
}
