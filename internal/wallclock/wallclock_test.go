// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package wallclock_test

import (
	"context"
	"testing"
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/wallclock"
	"github.com/stretchr/testify/require"
)

func TestManualAdvance(t *testing.T) {
	m := wallclock.NewManual()
	require.Equal(t, wallclock.Epoch, m.Now())

	m.Advance(time.Second)
	m.Advance(-time.Hour)
	require.Equal(t, time.Second, m.Elapsed())

	m.Set(wallclock.Epoch)
	require.Equal(t, time.Second, m.Elapsed())
	m.Set(wallclock.Epoch.Add(time.Minute))
	require.Equal(t, time.Minute, m.Elapsed())
}

func TestManualWaitsAdvance(t *testing.T) {
	m := wallclock.NewManual()

	at := <-m.After(250 * time.Millisecond)
	require.Equal(t, wallclock.Epoch.Add(250*time.Millisecond), at)

	timer := m.NewTimer(time.Second)
	<-timer.C()
	require.Equal(t, 1250*time.Millisecond, m.Elapsed())
	// Reset fires immediately too, advancing the clock again.
	require.True(t, timer.Reset(time.Second))
	require.True(t, timer.Stop())
	require.False(t, timer.Stop())

	require.NoError(t, wallclock.Sleep(context.Background(), m, 500*time.Millisecond))
	require.Equal(t, 2750*time.Millisecond, m.Elapsed())
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, wallclock.Sleep(ctx, wallclock.NewManual(), 0), context.Canceled)
	require.ErrorIs(t, wallclock.Sleep(ctx, wallclock.System, time.Hour), context.Canceled)
}

func TestOrSystem(t *testing.T) {
	require.Equal(t, wallclock.System, wallclock.OrSystem(nil))

	m := wallclock.NewManual()
	require.Equal(t, wallclock.WallClock(m), wallclock.OrSystem(m))
}
