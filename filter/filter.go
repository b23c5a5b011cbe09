// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package filter smooths a noisy scalar stream with a fixed-depth moving
// average.
package filter

// Window is the number of samples averaged by a MovingAverage.
const Window = 5

// MovingAverage is the arithmetic mean of the most recent samples, up to
// Window of them. The zero value is ready to use.
type MovingAverage struct {
	samples [Window]float64
	count   int
	cursor  int
	sum     float64
}

// Reset clears all samples.
func (f *MovingAverage) Reset() {
	*f = MovingAverage{}
}

// Push records a sample, evicting the oldest one once the window is full.
func (f *MovingAverage) Push(value float64) {
	if f.count == Window {
		f.sum -= f.samples[f.cursor]
	} else {
		f.count++
	}
	f.samples[f.cursor] = value
	f.sum += value
	f.cursor = (f.cursor + 1) % Window

	// Re-sum once per full revolution so rounding error from the running sum
	// cannot accumulate over the process lifetime.
	if f.cursor == 0 {
		f.sum = 0
		for _, s := range f.samples[:f.count] {
			f.sum += s
		}
	}
}

// Value returns the mean of the stored samples, or 0 if there are none.
func (f *MovingAverage) Value() float64 {
	if f.count == 0 {
		return 0
	}
	return f.sum / float64(f.count)
}

// Count returns the number of stored samples.
func (f *MovingAverage) Count() int {
	return f.count
}
