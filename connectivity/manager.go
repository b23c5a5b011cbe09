// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package connectivity keeps a publish/subscribe transport alive over an
// unreliable link: bounded link retries, broker handshake, subscription
// restoration and a restart request after repeated failure.
package connectivity

import (
	"context"
	"slices"

	"github.com/ObsidianArch02/eco-exoskeleton-project/errors"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/log"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/queue"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/wallclock"
	"github.com/ObsidianArch02/eco-exoskeleton-project/retry"
)

// Manager owns the transport lifecycle. It is driven by the control loop
// through Service and is not safe for concurrent use.
type Manager struct {
	transport Transport
	opts      Options
	link      retry.Policy
	log       logger

	state       State
	failures    int
	connections int
	fatal       *RestartRequiredError

	// Registration order is the replay order.
	subscriptions []string
	inbound       *queue.Queue[Message]
}

// New creates a connectivity manager for the transport. No connection is
// attempted until the first call to Service.
func New(transport Transport, opt ...Option) *Manager {
	var opts Options
	opts.Apply(opt)
	opts.defaults()

	m := &Manager{
		transport: transport,
		opts:      opts,
		log:       logger{log.Wrap(opts.Logger)},
		inbound:   queue.New[Message](opts.QueueSize),
	}
	m.link = &retry.Fixed{
		MaxAttempts: opts.LinkAttempts,
		Interval:    opts.LinkRetryDelay,
		Clock:       opts.Clock,
		Logger:      opts.Logger,
	}
	opts.Metrics.ConnectionState(int(Disconnected))
	return m
}

// State returns the current connection state.
func (m *Manager) State() State {
	return m.state
}

// Connected reports whether the broker session is open.
func (m *Manager) Connected() bool {
	return m.state == BrokerConnected
}

// Failures returns the number of consecutive failed connection cycles.
func (m *Manager) Failures() int {
	return m.failures
}

// ResubscribeTopic returns the reserved topic of the resubscription signal.
func (m *Manager) ResubscribeTopic() string {
	return m.opts.ResubscribeTopic
}

// Service performs one unit of connectivity work. While connected it polls
// the transport; otherwise it runs one full connection cycle, waiting the
// cycle retry delay if that fails. It returns the inbound messages ready for
// dispatch. Once the failed-cycle threshold is reached it returns a
// *RestartRequiredError, and keeps returning it without touching the
// transport again.
func (m *Manager) Service(ctx context.Context) ([]Message, error) {
	if m.fatal != nil {
		return nil, m.fatal
	}

	if m.state == BrokerConnected {
		msgs, err := m.transport.Poll(ctx)
		m.enqueue(ctx, msgs...)
		if err != nil {
			m.log.lost(ctx, err)
			_ = m.transport.Close()
			m.setState(ctx, Degraded)
		}
		return m.inbound.Drain(), nil
	}

	err := m.cycle(ctx)
	if err == nil {
		return m.inbound.Drain(), nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	m.failures++
	m.opts.Metrics.ReconnectFailure()
	if m.failures >= m.opts.MaxFailedCycles {
		m.fatal = &RestartRequiredError{Cycles: m.failures, Last: err}
		m.log.restart(ctx, m.fatal)
		if m.opts.Restart != nil {
			m.opts.Restart(m.fatal)
		}
		return nil, m.fatal
	}

	m.log.cycleFailed(
		ctx,
		m.failures,
		m.opts.MaxFailedCycles,
		m.opts.CycleRetryDelay,
		err,
	)
	if err := wallclock.Sleep(ctx, m.opts.Clock, m.opts.CycleRetryDelay); err != nil {
		return nil, err
	}
	return nil, nil
}

// cycle runs the full link, handshake and replay sequence once.
func (m *Manager) cycle(ctx context.Context) error {
	resting := m.resting()

	err := m.link.Start(ctx, "link", func(ctx context.Context) (bool, error) {
		if err := m.transport.Link(ctx); err != nil {
			return true, &errors.Error{
				Kind:        errors.LinkFailed,
				Message:     "link attempt failed",
				NestedError: err,
			}
		}
		return false, nil
	})
	if err != nil {
		m.setState(ctx, resting)
		return err
	}
	m.setState(ctx, LinkUp)

	if err := m.transport.Handshake(ctx); err != nil {
		_ = m.transport.Close()
		m.setState(ctx, resting)
		return &errors.Error{
			Kind:        errors.HandshakeFailed,
			Message:     "broker handshake failed",
			NestedError: err,
		}
	}

	for _, topic := range m.subscriptions {
		if err := m.transport.Subscribe(ctx, topic); err != nil {
			_ = m.transport.Close()
			m.setState(ctx, resting)
			return &errors.Error{
				Kind:          errors.HandshakeFailed,
				Message:       "subscription replay failed",
				NestedError:   err,
				PropertyName:  "topic",
				PropertyValue: topic,
			}
		}
	}

	m.failures = 0
	m.connections++
	reconnect := m.connections > 1
	m.setState(ctx, BrokerConnected)
	m.log.replayed(ctx, len(m.subscriptions), reconnect)

	if reconnect {
		m.enqueue(ctx, Message{Topic: m.opts.ResubscribeTopic})
	}
	return nil
}

// Subscribe adds a topic to the subscription registry and, if connected,
// subscribes immediately. Registered topics are restored after every
// reconnection even if the immediate subscribe fails.
func (m *Manager) Subscribe(ctx context.Context, topic string) error {
	if !slices.Contains(m.subscriptions, topic) {
		m.subscriptions = append(m.subscriptions, topic)
	}
	if !m.Connected() {
		return nil
	}
	return m.transport.Subscribe(ctx, topic)
}

// Resubscribe issues the subscription for a topic again without changing
// the registry.
func (m *Manager) Resubscribe(ctx context.Context, topic string) error {
	if !m.Connected() {
		return errNotConnected
	}
	return m.transport.Subscribe(ctx, topic)
}

// Subscriptions returns the registered topics in registration order.
func (m *Manager) Subscriptions() []string {
	return slices.Clone(m.subscriptions)
}

// Publish sends a payload if connected. Failures are returned to the caller
// and are not retried.
func (m *Manager) Publish(ctx context.Context, topic string, payload []byte) error {
	if !m.Connected() {
		return errNotConnected
	}
	return m.transport.Publish(ctx, topic, payload)
}

// Close shuts the transport down.
func (m *Manager) Close() error {
	err := m.transport.Close()
	m.setState(context.Background(), m.resting())
	return err
}

func (m *Manager) resting() State {
	if m.connections > 0 {
		return Degraded
	}
	return Disconnected
}

func (m *Manager) setState(ctx context.Context, to State) {
	from := m.state
	if from == to {
		return
	}
	m.state = to
	m.log.state(ctx, from, to)
	m.opts.Metrics.ConnectionState(int(to))
	if m.opts.StateHandler != nil {
		m.opts.StateHandler(from, to)
	}
}

func (m *Manager) enqueue(ctx context.Context, msgs ...Message) {
	for _, msg := range msgs {
		if !m.inbound.Push(msg) {
			m.opts.Metrics.InboundDropped()
			m.log.dropped(ctx, msg)
		}
	}
}
