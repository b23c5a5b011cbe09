// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package wallclock

import (
	"context"
	"sync"
	"time"
)

type (
	// Manual is a WallClock whose time only moves when told to. Waiting on it
	// (After, timers) advances the clock by the requested duration and returns
	// immediately, which lets blocking retry and supervision code run to
	// completion in tests while still observing the delays it asked for.
	Manual struct {
		mu  sync.Mutex
		now time.Time
	}

	manualTimer struct {
		clock *Manual
		c     chan time.Time
		mu    sync.Mutex
		live  bool
	}
)

// Epoch is the default starting instant of a Manual clock.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// NewManual creates a manual clock starting at Epoch.
func NewManual() *Manual {
	return &Manual{now: Epoch}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d > 0 {
		m.now = m.now.Add(d)
	}
	return m.now
}

// Set moves the clock to t if t is not in the past.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.After(m.now) {
		m.now = t
	}
}

// Elapsed returns the time since Epoch.
func (m *Manual) Elapsed() time.Duration {
	return m.Now().Sub(Epoch)
}

// After advances the clock by d and returns an already-fired channel.
func (m *Manual) After(d time.Duration) <-chan time.Time {
	c := make(chan time.Time, 1)
	c <- m.Advance(d)
	return c
}

// NewTimer returns a timer that fires immediately, advancing the clock.
func (m *Manual) NewTimer(d time.Duration) Timer {
	t := &manualTimer{clock: m, c: make(chan time.Time, 1)}
	t.Reset(d)
	return t
}

// WithTimeoutCause returns a context that is only cancelled by its parent or
// the returned cancel function; manual time never expires it.
func (*Manual) WithTimeoutCause(
	parent context.Context,
	_ time.Duration,
	_ error,
) (context.Context, context.CancelFunc) {
	return context.WithCancel(parent)
}

func (t *manualTimer) C() <-chan time.Time {
	return t.c
}

func (t *manualTimer) Reset(d time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := t.live
	select {
	case <-t.c:
	default:
	}
	t.c <- t.clock.Advance(d)
	t.live = true
	return was
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	was := t.live
	t.live = false
	select {
	case <-t.c:
	default:
	}
	return was
}
