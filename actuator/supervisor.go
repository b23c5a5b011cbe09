// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package actuator executes one actuator command at a time as a bounded,
// polled run with a safety guard and a hard timeout.
package actuator

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/errors"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/log"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/wallclock"
	"github.com/ObsidianArch02/eco-exoskeleton-project/metrics"
	"github.com/google/uuid"
)

// Supervisor owns the actuator outputs of a module. It is driven by the
// control loop through Submit and Poll and is not safe for concurrent use.
type Supervisor struct {
	actions map[string]*Action
	names   []string
	emitter Emitter

	clock   wallclock.WallClock
	log     logger
	metrics *metrics.Metrics
	onRun   func(Record)

	run  *Run
	last Phase
}

// New validates the actions and creates a supervisor emitting status
// transitions through e.
func New(e Emitter, actions []Action, opt ...Option) (*Supervisor, error) {
	var opts Options
	opts.Apply(opt)

	s := &Supervisor{
		actions: make(map[string]*Action, len(actions)),
		emitter: e,
		clock:   wallclock.OrSystem(opts.Clock),
		log:     logger{log.Wrap(opts.Logger)},
		metrics: opts.Metrics,
		onRun:   opts.RunHandler,
	}

	for i := range actions {
		a := actions[i]
		var problem string
		switch {
		case a.Name == "":
			problem = "action name must not be empty"
		case s.actions[a.Name] != nil:
			problem = "duplicate action"
		case a.Output == nil:
			problem = "action has no output"
		case a.Level == nil:
			problem = "action has no level mapping"
		case !a.Instant && a.Timeout <= 0 && a.TimeoutFor == nil:
			problem = "supervised action needs a timeout"
		}
		if problem != "" {
			return nil, &errors.Error{
				Kind:          errors.ConfigurationInvalid,
				Message:       problem,
				PropertyName:  fmt.Sprintf("actions[%d]", i),
				PropertyValue: a.Name,
			}
		}
		s.actions[a.Name] = &a
		s.names = append(s.names, a.Name)
	}
	return s, nil
}

// Actions returns the command vocabulary.
func (s *Supervisor) Actions() []string {
	return slices.Clone(s.names)
}

// Busy reports whether a run is active.
func (s *Supervisor) Busy() bool {
	return s.run != nil
}

// Phase returns RUNNING while a run is active, otherwise the terminal phase
// of the most recent run (IDLE before the first one).
func (s *Supervisor) Phase() Phase {
	if s.run != nil {
		return Running
	}
	return s.last
}

// Current returns the active run, or nil.
func (s *Supervisor) Current() *Run {
	return s.run
}

// Next returns when the active run is next evaluated, or the zero time if
// the supervisor is idle.
func (s *Supervisor) Next() time.Time {
	if s.run == nil {
		return time.Time{}
	}
	return s.run.next
}

// Submit validates a command and starts it. It returns a Busy error while a
// run is active, UnknownAction for a command outside the vocabulary and
// ArgumentInvalid for missing, non-finite or out of range parameters. A rejected
// command has no side effects.
func (s *Supervisor) Submit(ctx context.Context, cmd Command) error {
	if s.run != nil {
		return &errors.Error{
			Kind:          errors.Busy,
			Message:       "a run is already active",
			PropertyName:  "action",
			PropertyValue: s.run.Action.Name,
		}
	}

	a := s.actions[cmd.Action]
	if a == nil {
		return &errors.Error{
			Kind:          errors.UnknownAction,
			Message:       "unknown action",
			PropertyName:  "action",
			PropertyValue: cmd.Action,
		}
	}

	for _, name := range a.Required {
		v, ok := cmd.Params[name]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			return &errors.Error{
				Kind:         errors.ArgumentInvalid,
				Message:      "missing or non-numeric parameter",
				PropertyName: name,
			}
		}
	}
	for name, limit := range a.Limits {
		v, ok := cmd.Params[name]
		if ok && (v < limit.Min || v > limit.Max) {
			return &errors.Error{
				Kind:          errors.ArgumentInvalid,
				Message:       "parameter out of range",
				PropertyName:  name,
				PropertyValue: v,
			}
		}
	}

	level := a.Level(cmd.Params)
	if a.Instant {
		if err := a.Output.Set(level); err != nil {
			return s.fault(a, err)
		}
		s.log.instant(ctx, a, level)
		s.emit(ctx, a.label(), a.StartMessage)
		return nil
	}

	now := s.clock.Now()
	r := &Run{
		ID:       uuid.New(),
		Action:   a,
		Params:   cmd.Params,
		Level:    level,
		Start:    now,
		Deadline: now.Add(a.timeout(cmd.Params)),
		Phase:    Running,
		now:      now,
		next:     now,
	}

	if err := a.Output.Set(level); err != nil {
		_ = a.Output.Set(0)
		return s.fault(a, err)
	}
	s.run = r
	s.log.started(ctx, r)
	s.emit(ctx, a.label(), a.StartMessage)
	return nil
}

// Poll evaluates the active run if it is due, in order: safety guard,
// completion, timeout. It reports whether the run finished.
func (s *Supervisor) Poll(ctx context.Context) bool {
	r := s.run
	if r == nil {
		return false
	}
	now := s.clock.Now()
	if now.Before(r.next) {
		return false
	}
	r.now = now
	a := r.Action

	if a.Guard != nil {
		if cause := a.Guard(r); cause != nil {
			s.finish(ctx, r, Error, &errors.Error{
				Kind:    errors.SafetyViolation,
				Message: cause.Error(),
			})
			return true
		}
	}

	if a.Complete != nil && a.Complete(r) {
		s.finish(ctx, r, Completed, nil)
		return true
	}

	if !now.Before(r.Deadline) {
		s.finish(ctx, r, Error, &errors.Error{
			Kind:          errors.Timeout,
			Message:       a.timeoutMessage(),
			PropertyName:  "timeout",
			PropertyValue: r.Deadline.Sub(r.Start),
		})
		return true
	}

	r.next = now.Add(a.interval())
	if r.Deadline.Before(r.next) {
		r.next = r.Deadline
	}
	return false
}

// Stop aborts the active run, de-energizing its output and emitting an ERROR
// status. It is a no-op while idle.
func (s *Supervisor) Stop(ctx context.Context, reason string) {
	r := s.run
	if r == nil {
		return
	}
	r.now = s.clock.Now()
	s.finish(ctx, r, Error, &errors.Error{
		Kind:    errors.Aborted,
		Message: reason,
	})
}

// Wait blocks on the clock until the active run finishes, polling it at its
// scheduled deadlines. It returns the terminal phase.
func (s *Supervisor) Wait(ctx context.Context) (Phase, error) {
	for s.run != nil {
		wait := s.run.next.Sub(s.clock.Now())
		if err := wallclock.Sleep(ctx, s.clock, wait); err != nil {
			return Running, err
		}
		s.Poll(ctx)
	}
	return s.last, nil
}

func (s *Supervisor) finish(ctx context.Context, r *Run, phase Phase, cause error) {
	// De-energize before anything else can fail.
	if err := r.Action.Output.Set(0); err != nil {
		s.log.Err(ctx, &errors.Error{
			Kind:        errors.HardwareFault,
			Message:     "failed to de-energize output",
			NestedError: err,
		})
	}

	r.Phase = phase
	s.run = nil
	s.last = phase

	rec := Record{
		ID:      r.ID,
		Action:  r.Action.Name,
		Phase:   phase,
		Elapsed: r.Elapsed(),
		Cause:   cause,
	}
	s.log.finished(ctx, rec)
	s.metrics.RunFinished(outcome(cause))

	if cause != nil {
		s.emit(ctx, ErrorLabel, cause.Error())
	} else {
		s.emit(ctx, r.Action.doneLabel(), r.Action.DoneMessage)
	}

	if s.onRun != nil {
		s.onRun(rec)
	}
}

func (s *Supervisor) fault(a *Action, err error) error {
	s.last = Error
	return &errors.Error{
		Kind:          errors.HardwareFault,
		Message:       "failed to drive output",
		NestedError:   err,
		PropertyName:  "action",
		PropertyValue: a.Name,
	}
}

func (s *Supervisor) emit(ctx context.Context, state, message string) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.EmitStatus(ctx, state, message); err != nil {
		s.log.Warn(ctx, err)
	}
}

func outcome(cause error) string {
	switch errors.KindOf(cause) {
	case errors.SafetyViolation:
		return "safety"
	case errors.Timeout:
		return "timeout"
	case errors.Aborted:
		return "aborted"
	case errors.UnknownError:
		if cause == nil {
			return "completed"
		}
	}
	return "fault"
}
