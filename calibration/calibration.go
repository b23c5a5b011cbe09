// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package calibration maps raw sensor readings into physical units.
package calibration

import "fmt"

type (
	// Function converts a raw reading into a physical value. Implementations
	// are pure and defined over the whole raw domain.
	Function interface {
		Apply(raw float64) float64
	}

	// Linear is m*raw + b.
	Linear struct{ M, B float64 }

	// Quadratic is a*raw^2 + b*raw.
	Quadratic struct{ A, B float64 }

	// Piecewise is a two-segment linear function split at Breakpoint. Below
	// it the value is SlopeLow*raw + InterceptLow; from it upwards the value
	// is InterceptHigh + SlopeHigh*(raw - Offset).
	Piecewise struct {
		Breakpoint    float64
		SlopeLow      float64
		InterceptLow  float64
		SlopeHigh     float64
		InterceptHigh float64
		Offset        float64
	}

	identity struct{}
)

// Reference calibrations of the module sensors.
var (
	// Temperature converts a 12-bit ADC reading to degrees Celsius.
	Temperature = Linear{M: 0.125, B: -12.5}

	// Pressure converts a 12-bit ADC reading to kPa.
	Pressure = Quadratic{A: 0.0015, B: 0.25}

	// Flow converts a 12-bit ADC reading to L/min.
	Flow = Piecewise{
		Breakpoint:    500,
		SlopeLow:      0.1,
		InterceptLow:  0,
		SlopeHigh:     0.08,
		InterceptHigh: 50,
		Offset:        500,
	}

	// Humidity converts a 12-bit ADC reading to percent relative humidity.
	Humidity = Linear{M: 100.0 / 4095.0}

	// Identity passes raw readings through unchanged.
	Identity Function = identity{}
)

func (l Linear) Apply(raw float64) float64 {
	return l.M*raw + l.B
}

func (q Quadratic) Apply(raw float64) float64 {
	return q.A*raw*raw + q.B*raw
}

func (p Piecewise) Apply(raw float64) float64 {
	if raw < p.Breakpoint {
		return p.Low(raw)
	}
	return p.High(raw)
}

// Low evaluates the lower segment.
func (p Piecewise) Low(raw float64) float64 {
	return p.SlopeLow*raw + p.InterceptLow
}

// High evaluates the upper segment.
func (p Piecewise) High(raw float64) float64 {
	return p.InterceptHigh + p.SlopeHigh*(raw-p.Offset)
}

// Discontinuity returns the jump between the two segments at the breakpoint.
func (p Piecewise) Discontinuity() float64 {
	return p.High(p.Breakpoint) - p.Low(p.Breakpoint)
}

func (identity) Apply(raw float64) float64 { return raw }

func (l Linear) String() string {
	return fmt.Sprintf("linear(m=%g, b=%g)", l.M, l.B)
}

func (q Quadratic) String() string {
	return fmt.Sprintf("quadratic(a=%g, b=%g)", q.A, q.B)
}

func (p Piecewise) String() string {
	return fmt.Sprintf("piecewise(at=%g)", p.Breakpoint)
}

func (identity) String() string { return "identity" }
