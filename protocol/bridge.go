// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package protocol translates between the module's commands, samples and
// status transitions and their JSON wire messages.
package protocol

import (
	"context"
	"log/slog"
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/actuator"
	"github.com/ObsidianArch02/eco-exoskeleton-project/connectivity"
	"github.com/ObsidianArch02/eco-exoskeleton-project/errors"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/log"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/wallclock"
	"github.com/ObsidianArch02/eco-exoskeleton-project/metrics"
	"github.com/ObsidianArch02/eco-exoskeleton-project/sensor"
)

type (
	// Link is the outbound side of the connectivity manager.
	Link interface {
		Subscribe(ctx context.Context, topic string) error
		Resubscribe(ctx context.Context, topic string) error
		Publish(ctx context.Context, topic string, payload []byte) error
	}

	// Dispatcher accepts decoded commands.
	Dispatcher interface {
		Submit(ctx context.Context, cmd actuator.Command) error
	}

	// Bridge implements actuator.Emitter and sensor.Publisher on top of a
	// Link, and routes inbound command messages to a Dispatcher.
	Bridge struct {
		module      string
		topics      Topics
		resubscribe string
		link        Link
		dispatcher  Dispatcher

		clock   wallclock.WallClock
		start   time.Time
		last    int64
		log     log.Logger
		metrics *metrics.Metrics

		commands Encoding[CommandMessage]
		statuses Encoding[StatusMessage]
		samples  Encoding[SensorMessage]
		signal   Encoding[any]
	}
)

// Command dispatch results, as recorded in metrics.
const (
	ResultAccepted      = "accepted"
	ResultBusy          = "busy"
	ResultUnknownAction = "unknown_action"
	ResultMalformed     = "malformed"
	ResultFault         = "fault"
)

// NewBridge creates a bridge for a module. Status timestamps count
// milliseconds from this call.
func NewBridge(
	module string,
	topics Topics,
	link Link,
	opt ...BridgeOption,
) *Bridge {
	var opts BridgeOptions
	opts.Apply(opt)
	if opts.ResubscribeTopic == "" {
		opts.ResubscribeTopic = connectivity.DefaultResubscribeTopic
	}
	clock := wallclock.OrSystem(opts.Clock)

	return &Bridge{
		module:      module,
		topics:      topics,
		resubscribe: opts.ResubscribeTopic,
		link:        link,
		clock:       clock,
		start:       clock.Now(),
		log:         log.Wrap(opts.Logger).With(slog.String("module", module)),
		metrics:     opts.Metrics,
		commands:    JSON[CommandMessage]{},
		statuses:    JSON[StatusMessage]{},
		samples:     JSON[SensorMessage]{},
		signal:      Empty{},
	}
}

// Bind sets the dispatcher receiving inbound commands.
func (b *Bridge) Bind(d Dispatcher) {
	b.dispatcher = d
}

// Topics returns the topics of the module.
func (b *Bridge) Topics() Topics {
	return b.topics
}

// Start registers the command subscription.
func (b *Bridge) Start(ctx context.Context) error {
	return b.link.Subscribe(ctx, b.topics.Command)
}

// Handle routes one inbound message. The resubscription signal re-issues the
// command subscription; command messages are decoded and dispatched; every
// other topic is ignored. Malformed or rejected commands are logged and
// dropped without any outbound message.
func (b *Bridge) Handle(ctx context.Context, msg connectivity.Message) {
	switch msg.Topic {
	case b.resubscribe:
		if _, err := deserialize(b.signal, msg.Payload); err != nil {
			b.log.Warn(ctx, err, slog.String("topic", msg.Topic))
			return
		}
		if err := b.link.Resubscribe(ctx, b.topics.Command); err != nil {
			b.log.Warn(ctx, err, slog.String("topic", b.topics.Command))
			return
		}
		b.log.Log(ctx, slog.LevelInfo, "resubscribed",
			slog.String("topic", b.topics.Command),
		)

	case b.topics.Command:
		b.command(ctx, msg.Payload)

	default:
		b.log.Log(ctx, slog.LevelDebug, "ignoring message",
			slog.String("topic", msg.Topic),
		)
	}
}

func (b *Bridge) command(ctx context.Context, payload []byte) {
	msg, err := deserialize(b.commands, payload)
	if err != nil {
		b.metrics.Command(ResultMalformed)
		b.log.Warn(ctx, err, slog.String("payload", string(payload)))
		return
	}
	if b.dispatcher == nil {
		b.metrics.Command(ResultFault)
		b.log.Log(ctx, slog.LevelWarn, "no dispatcher bound; command dropped",
			slog.String("action", msg.Action),
		)
		return
	}

	cmd := msg.Command()
	err = b.dispatcher.Submit(ctx, cmd)
	result := ResultAccepted
	switch {
	case err == nil:
		b.log.Log(ctx, slog.LevelInfo, "command accepted",
			slog.String("action", cmd.Action),
		)
	case errors.IsKind(err, errors.Busy):
		result = ResultBusy
		b.log.Log(ctx, slog.LevelInfo, "command dropped while busy",
			slog.String("action", cmd.Action),
		)
	case errors.IsKind(err, errors.UnknownAction):
		result = ResultUnknownAction
		b.log.Warn(ctx, err, slog.String("action", cmd.Action))
	case errors.IsKind(err, errors.ArgumentInvalid):
		result = ResultMalformed
		b.log.Warn(ctx, err, slog.String("action", cmd.Action))
	default:
		result = ResultFault
		b.log.Err(ctx, err, slog.String("action", cmd.Action))
	}
	b.metrics.Command(result)
}

// Timestamp returns the milliseconds since the bridge was created. Values
// never decrease, even if the clock steps backwards.
func (b *Bridge) Timestamp() int64 {
	ts := b.clock.Now().Sub(b.start).Milliseconds()
	if ts < b.last {
		ts = b.last
	}
	b.last = ts
	return ts
}

// EmitStatus publishes a status transition.
func (b *Bridge) EmitStatus(ctx context.Context, state, message string) error {
	payload, err := serialize(b.statuses, StatusMessage{
		Module:    b.module,
		State:     state,
		Message:   message,
		Timestamp: b.Timestamp(),
	})
	if err != nil {
		return err
	}
	return b.publish(ctx, "status", b.topics.Status, payload)
}

// PublishSample publishes one merged sensor sample.
func (b *Bridge) PublishSample(ctx context.Context, s sensor.Sample) error {
	payload, err := serialize(b.samples, SensorMessage(s))
	if err != nil {
		return err
	}
	return b.publish(ctx, "sensors", b.topics.Sensors, payload)
}

func (b *Bridge) publish(ctx context.Context, kind, topic string, payload []byte) error {
	if err := b.link.Publish(ctx, topic, payload); err != nil {
		b.metrics.PublishFailed(kind)
		return err
	}
	b.metrics.Published(kind)
	return nil
}
