// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package node assembles a module's connectivity, sensing and actuation into
// one cooperative control loop.
package node

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/actuator"
	"github.com/ObsidianArch02/eco-exoskeleton-project/connectivity"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/log"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/wallclock"
	"github.com/ObsidianArch02/eco-exoskeleton-project/modules"
	"github.com/ObsidianArch02/eco-exoskeleton-project/protocol"
	"github.com/ObsidianArch02/eco-exoskeleton-project/sensor"
)

type (
	// Node runs one module. Step and Run must be called from a single
	// goroutine; Healthy and Snapshot may be called from any.
	Node struct {
		name       string
		manager    *connectivity.Manager
		bridge     *protocol.Bridge
		pipeline   *sensor.Pipeline
		supervisor *actuator.Supervisor

		clock     wallclock.WallClock
		yield     time.Duration
		log       log.Logger
		start     time.Time
		announced bool
		deferred  bool
		snapshot  atomic.Pointer[Snapshot]
	}

	// Snapshot is the externally visible state of a node.
	Snapshot struct {
		Module     string `json:"module"`
		Connection string `json:"connection"`
		Failures   int    `json:"reconnect_failures"`
		Phase      string `json:"actuator_phase"`
		Action     string `json:"action,omitempty"`
		UptimeMS   int64  `json:"uptime_ms"`
	}
)

const (
	// StartupMessage is announced with the IDLE state once the broker is
	// first reached.
	StartupMessage = "System startup"
	// StopMessage is the ERROR status of a run aborted by Close.
	StopMessage = "Control loop stopped"
)

// New wires a module to a transport.
func New(
	m modules.Module,
	transport connectivity.Transport,
	opt ...Option,
) (*Node, error) {
	opts := Options{LoopYield: DefaultLoopYield}
	opts.Apply(opt)
	clock := wallclock.OrSystem(opts.Clock)

	manager := connectivity.New(transport, append([]connectivity.Option{
		connectivity.WithClock(clock),
		connectivity.WithLogger(opts.Logger),
		connectivity.WithMetrics(opts.Metrics),
	}, opts.Connectivity...)...)

	topics, err := protocol.NewTopics(opts.TopicPattern, m.Name)
	if err != nil {
		return nil, err
	}
	bridge := protocol.NewBridge(m.Name, topics, manager,
		protocol.WithResubscribeTopic(manager.ResubscribeTopic()),
		protocol.WithClock(clock),
		protocol.WithLogger(opts.Logger),
		protocol.WithMetrics(opts.Metrics),
	)

	supervisor, err := actuator.New(bridge, m.Actions,
		actuator.WithClock(clock),
		actuator.WithLogger(opts.Logger),
		actuator.WithMetrics(opts.Metrics),
	)
	if err != nil {
		return nil, err
	}
	bridge.Bind(supervisor)

	pipeline, err := sensor.New(bridge, m.Schedules,
		sensor.WithClock(clock),
		sensor.WithLogger(opts.Logger),
		sensor.WithMetrics(opts.Metrics),
	)
	if err != nil {
		return nil, err
	}

	// Registration only; the subscription is made on every connection.
	if err := bridge.Start(context.Background()); err != nil {
		return nil, err
	}

	n := &Node{
		name:       m.Name,
		manager:    manager,
		bridge:     bridge,
		pipeline:   pipeline,
		supervisor: supervisor,
		clock:      clock,
		yield:      opts.LoopYield,
		log:        log.Wrap(opts.Logger).With(slog.String("module", m.Name)),
		start:      clock.Now(),
	}
	n.publish()
	return n, nil
}

// Step performs one iteration of the control loop: connectivity service,
// inbound dispatch, due sensor ticks and the actuator poll. It returns an
// error only when the loop must end, either a *RestartRequiredError or the
// context's error.
//
// While a run is active and the session is down, the connection cycle is
// held off until the run ends so that the run stays supervised.
func (n *Node) Step(ctx context.Context) error {
	defer n.publish()

	if n.supervisor.Busy() && !n.manager.Connected() {
		if !n.deferred {
			n.deferred = true
			n.log.Log(ctx, slog.LevelWarn, "reconnect deferred until the active run ends",
				slog.String("connection", n.manager.State().String()),
			)
		}
		n.supervisor.Poll(ctx)
		return nil
	}
	n.deferred = false

	msgs, err := n.manager.Service(ctx)
	if err != nil {
		return err
	}

	if n.manager.Connected() && !n.announced {
		n.announced = true
		if err := n.bridge.EmitStatus(ctx, actuator.IdleLabel, StartupMessage); err != nil {
			n.log.Warn(ctx, err)
		}
	}
	for _, msg := range msgs {
		n.bridge.Handle(ctx, msg)
	}
	if n.manager.Connected() {
		n.pipeline.Tick(ctx)
	}
	n.supervisor.Poll(ctx)
	return nil
}

// Run steps the loop until the context ends or a restart is required. The
// loop sleeps on the clock between steps, for the yield or until the next
// sensor or actuator deadline if that is sooner.
func (n *Node) Run(ctx context.Context) error {
	n.log.Log(ctx, slog.LevelInfo, "control loop started",
		slog.Any("actions", n.supervisor.Actions()),
	)
	for ctx.Err() == nil {
		if err := n.Step(ctx); err != nil {
			if ctx.Err() == nil {
				n.log.Err(ctx, err)
			}
			return err
		}
		if err := wallclock.Sleep(ctx, n.clock, n.idle()); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// Close aborts any active run, de-energizing its output, and then tears down
// the broker link.
func (n *Node) Close() error {
	n.supervisor.Stop(context.Background(), StopMessage)
	n.publish()
	return n.manager.Close()
}

// Healthy reports whether the broker session is up.
func (n *Node) Healthy() bool {
	return n.State().Connection == connectivity.BrokerConnected.String()
}

// Snapshot returns the state as of the last step.
func (n *Node) Snapshot() any {
	return *n.snapshot.Load()
}

// State returns the typed snapshot.
func (n *Node) State() Snapshot {
	return *n.snapshot.Load()
}

// Manager exposes the connectivity manager, e.g. for state handlers.
func (n *Node) Manager() *connectivity.Manager {
	return n.manager
}

// Supervisor exposes the actuator supervisor.
func (n *Node) Supervisor() *actuator.Supervisor {
	return n.supervisor
}

func (n *Node) idle() time.Duration {
	now := n.clock.Now()
	d := n.yield
	for _, next := range []time.Time{n.pipeline.Next(), n.supervisor.Next()} {
		if next.IsZero() {
			continue
		}
		if until := next.Sub(now); until < d {
			d = until
		}
	}
	return d
}

func (n *Node) publish() {
	s := &Snapshot{
		Module:     n.name,
		Connection: n.manager.State().String(),
		Failures:   n.manager.Failures(),
		Phase:      n.supervisor.Phase().String(),
		UptimeMS:   n.clock.Now().Sub(n.start).Milliseconds(),
	}
	if r := n.supervisor.Current(); r != nil {
		s.Action = r.Action.Name
	}
	n.snapshot.Store(s)
}
