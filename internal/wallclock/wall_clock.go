// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package wallclock

import (
	"context"
	"time"
)

type (
	// WallClock abstracts the parts of packages time and context that the
	// control loop schedules against, so that schedules can be driven without
	// real delays.
	WallClock interface {
		Now() time.Time
		After(d time.Duration) <-chan time.Time
		NewTimer(d time.Duration) Timer
		WithTimeoutCause(
			parent context.Context,
			timeout time.Duration,
			cause error,
		) (context.Context, context.CancelFunc)
	}

	// Timer abstracts the functionality of time.Timer.
	Timer interface {
		C() <-chan time.Time
		Reset(d time.Duration) bool
		Stop() bool
	}

	systemClock struct{}

	systemTimer struct{ *time.Timer }
)

// System is the clock backed by the operating system.
var System WallClock = systemClock{}

// OrSystem returns the given clock, or System if it is nil.
func OrSystem(c WallClock) WallClock {
	if c == nil {
		return System
	}
	return c
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func (systemClock) NewTimer(d time.Duration) Timer {
	return systemTimer{time.NewTimer(d)}
}

func (systemClock) WithTimeoutCause(
	parent context.Context,
	timeout time.Duration,
	cause error,
) (context.Context, context.CancelFunc) {
	return context.WithTimeoutCause(parent, timeout, cause)
}

func (t systemTimer) C() <-chan time.Time {
	return t.Timer.C
}

// Sleep waits for d on the given clock, returning early with the context's
// error if it is cancelled first.
func Sleep(ctx context.Context, c WallClock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-c.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
