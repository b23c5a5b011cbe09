// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package filter_test

import (
	"math/rand"
	"testing"

	"github.com/ObsidianArch02/eco-exoskeleton-project/filter"
	"github.com/stretchr/testify/require"
)

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func TestEmpty(t *testing.T) {
	var f filter.MovingAverage
	require.Zero(t, f.Value())
	require.Zero(t, f.Count())
}

func TestPartialWindow(t *testing.T) {
	var f filter.MovingAverage
	f.Push(10)
	require.Equal(t, 10.0, f.Value())
	f.Push(20)
	f.Push(60)
	require.InDelta(t, 30.0, f.Value(), 1e-9)
	require.Equal(t, 3, f.Count())
}

func TestMeanOfLastWindow(t *testing.T) {
	// #nosec G404
	r := rand.New(rand.NewSource(1))

	var f filter.MovingAverage
	var pushed []float64
	for n := 1; n <= 200; n++ {
		v := r.Float64()*4095 - 100
		pushed = append(pushed, v)
		f.Push(v)

		start := max(0, len(pushed)-filter.Window)
		require.InDelta(t, mean(pushed[start:]), f.Value(), 1e-6, "after %d pushes", n)
		require.LessOrEqual(t, f.Count(), filter.Window)
	}
}

func TestReset(t *testing.T) {
	var f filter.MovingAverage
	for i := 0; i < 12; i++ {
		f.Push(float64(i))
	}

	f.Reset()
	require.Zero(t, f.Value())

	f.Push(42)
	require.Equal(t, 42.0, f.Value())
	require.Equal(t, 1, f.Count())
}
