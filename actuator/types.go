// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package actuator

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iancoleman/strcase"
)

type (
	// Output drives one actuator. Level 0 is de-energized.
	Output interface {
		Set(level uint32) error
	}

	// OutputFunc adapts a function to an Output.
	OutputFunc func(level uint32) error

	// Emitter publishes status transitions.
	Emitter interface {
		EmitStatus(ctx context.Context, state, message string) error
	}

	// Limit is an inclusive parameter range.
	Limit struct {
		Min, Max float64
	}

	// Params are the named numeric parameters of a command.
	Params map[string]float64

	// Command is a request to perform one action.
	Command struct {
		Action string
		Params Params
	}

	// Action describes one command of a module and how it is supervised.
	Action struct {
		// Name is the command vocabulary entry, e.g. "spray".
		Name string
		// Required lists the numeric parameters the command must carry.
		Required []string
		// Limits bounds parameters; a command outside them is rejected.
		Limits map[string]Limit

		// Output is driven for the duration of the run.
		Output Output
		// Level maps the command parameters to the drive level.
		Level func(Params) uint32

		// Complete reports that the run has reached its goal. A nil Complete
		// lets the run continue until the guard trips or it times out.
		Complete func(*Run) bool
		// Guard returns the cause when the run must be aborted for safety.
		Guard func(*Run) error

		// Timeout is the hard deadline of a run, measured from its start.
		Timeout time.Duration
		// TimeoutFor, when set, derives the deadline from the parameters.
		TimeoutFor func(Params) time.Duration
		// Interval is the polling period; 100ms if unset.
		Interval time.Duration

		// Label is the running state label; derived from Name if unset
		// ("spray" becomes "SPRAYING").
		Label        string
		StartMessage string
		// DoneLabel is the terminal label on completion; "COMPLETED" if unset.
		DoneLabel      string
		DoneMessage    string
		TimeoutMessage string

		// Instant actions set the output, emit one status and return without
		// supervising a run.
		Instant bool
	}

	// Run is one in-progress execution of an accepted command.
	Run struct {
		ID       uuid.UUID
		Action   *Action
		Params   Params
		Level    uint32
		Start    time.Time
		Deadline time.Time
		Phase    Phase

		now  time.Time
		next time.Time
	}

	// Record summarizes a finished run.
	Record struct {
		ID      uuid.UUID
		Action  string
		Phase   Phase
		Elapsed time.Duration
		Cause   error
	}

	// Phase is the lifecycle phase of a run.
	Phase int
)

const (
	Idle Phase = iota
	Running
	Completed
	Error
)

// Labels of the status protocol.
const (
	IdleLabel      = "IDLE"
	CompletedLabel = "COMPLETED"
	ErrorLabel     = "ERROR"
)

const defaultInterval = 100 * time.Millisecond

func (p Phase) String() string {
	switch p {
	case Idle:
		return "IDLE"
	case Running:
		return "RUNNING"
	case Completed:
		return "COMPLETED"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (f OutputFunc) Set(level uint32) error { return f(level) }

// Elapsed returns the run time at the current evaluation.
func (r *Run) Elapsed() time.Duration {
	return r.now.Sub(r.Start)
}

// Param returns a command parameter, or 0 if absent.
func (r *Run) Param(name string) float64 {
	return r.Params[name]
}

func (a *Action) label() string {
	if a.Label != "" {
		return a.Label
	}
	return strcase.ToScreamingSnake(gerund(a.Name))
}

func (a *Action) doneLabel() string {
	if a.DoneLabel != "" {
		return a.DoneLabel
	}
	return CompletedLabel
}

func (a *Action) timeoutMessage() string {
	if a.TimeoutMessage != "" {
		return a.TimeoutMessage
	}
	return a.Name + " timeout"
}

func (a *Action) interval() time.Duration {
	if a.Interval > 0 {
		return a.Interval
	}
	return defaultInterval
}

func (a *Action) timeout(p Params) time.Duration {
	if a.TimeoutFor != nil {
		return a.TimeoutFor(p)
	}
	return a.Timeout
}

func gerund(verb string) string {
	if strings.HasSuffix(verb, "e") && !strings.HasSuffix(verb, "ee") {
		verb = verb[:len(verb)-1]
	}
	return verb + "ing"
}

// Clamp limits a computed drive level to [lo, hi].
func Clamp(v float64, lo, hi uint32) uint32 {
	if math.IsNaN(v) || v < float64(lo) {
		return lo
	}
	if v > float64(hi) {
		return hi
	}
	return uint32(v)
}
