// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package sensor

import (
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/calibration"
	"github.com/ObsidianArch02/eco-exoskeleton-project/filter"
)

type (
	// Source reads one raw value from a physical input. Out-of-range values
	// are returned as read.
	Source interface {
		Read() float64
	}

	// SourceFunc adapts a function to a Source.
	SourceFunc func() float64

	// Channel is one sensor input with its own filter and calibration.
	// Digital channels report whether the raw value is non-zero and are
	// neither filtered nor calibrated.
	Channel struct {
		Name        string
		Source      Source
		Calibration calibration.Function
		Digital     bool

		filter filter.MovingAverage
	}

	// Reading is the result of sampling one channel.
	Reading struct {
		Channel string
		Raw     float64
		Value   float64
		Digital bool
	}

	// Sample is the merged set of readings of one schedule tick.
	Sample struct {
		Schedule string
		Time     time.Time
		Readings []Reading
	}
)

func (f SourceFunc) Read() float64 { return f() }

// Sample reads the source once and returns the smoothed, calibrated value.
func (c *Channel) Sample() Reading {
	raw := c.Source.Read()
	if c.Digital {
		v := 0.0
		if raw != 0 {
			v = 1
		}
		return Reading{Channel: c.Name, Raw: raw, Value: v, Digital: true}
	}

	c.filter.Push(raw)
	cal := c.Calibration
	if cal == nil {
		cal = calibration.Identity
	}
	return Reading{
		Channel: c.Name,
		Raw:     raw,
		Value:   cal.Apply(c.filter.Value()),
	}
}

// Reset clears the channel filter.
func (c *Channel) Reset() {
	c.filter.Reset()
}

// Bool reports a digital reading as a boolean.
func (r Reading) Bool() bool {
	return r.Value != 0
}

// Value returns the reading for a channel name, if present.
func (s Sample) Value(channel string) (Reading, bool) {
	for _, r := range s.Readings {
		if r.Channel == channel {
			return r, true
		}
	}
	return Reading{}, false
}
