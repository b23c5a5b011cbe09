// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package protocol

import (
	"log/slog"

	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/options"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/wallclock"
	"github.com/ObsidianArch02/eco-exoskeleton-project/metrics"
)

type (
	// BridgeOption represents a single bridge option.
	BridgeOption interface{ bridge(*BridgeOptions) }

	// BridgeOptions are the resolved bridge options.
	BridgeOptions struct {
		ResubscribeTopic string
		Clock            wallclock.WallClock
		Logger           *slog.Logger
		Metrics          *metrics.Metrics
	}

	// WithResubscribeTopic sets the reserved topic of the resubscription
	// signal.
	WithResubscribeTopic string

	withClock   struct{ wallclock.WallClock }
	withLogger  struct{ *slog.Logger }
	withMetrics struct{ *metrics.Metrics }
)

// WithClock sets the time source of status timestamps.
func WithClock(c wallclock.WallClock) BridgeOption { return withClock{c} }

// WithLogger enables logging with the provided slog logger.
func WithLogger(l *slog.Logger) BridgeOption { return withLogger{l} }

// WithMetrics records message and command counters.
func WithMetrics(m *metrics.Metrics) BridgeOption { return withMetrics{m} }

// Apply resolves the provided list of options.
func (o *BridgeOptions) Apply(opts []BridgeOption, rest ...BridgeOption) {
	for opt := range options.Apply[BridgeOption](opts, rest...) {
		opt.bridge(o)
	}
}

func (o *BridgeOptions) bridge(opt *BridgeOptions) {
	if o != nil {
		*opt = *o
	}
}

func (o WithResubscribeTopic) bridge(opt *BridgeOptions) {
	opt.ResubscribeTopic = string(o)
}

func (o withClock) bridge(opt *BridgeOptions)   { opt.Clock = o.WallClock }
func (o withLogger) bridge(opt *BridgeOptions)  { opt.Logger = o.Logger }
func (o withMetrics) bridge(opt *BridgeOptions) { opt.Metrics = o.Metrics }
