// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package modules

import (
	"math"
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/actuator"
	"github.com/ObsidianArch02/eco-exoskeleton-project/calibration"
	"github.com/ObsidianArch02/eco-exoskeleton-project/errors"
	"github.com/ObsidianArch02/eco-exoskeleton-project/sensor"
)

// Bubble machine pins and parameters.
const (
	BubbleName = "bubble"

	NozzlePin     = "nozzle"
	FlowPin       = "flow"
	TankLevelPin  = "tank_level"
	SupplyPin     = "pressure"
	bubblePeriod  = time.Second
	sprayInterval = 100 * time.Millisecond
	// The run is bounded by the requested duration; the grace period only
	// catches a run whose completion was somehow skipped.
	sprayGrace = time.Second

	// MaxSprayDuration is the longest spray accepted, in milliseconds.
	MaxSprayDuration = 10 * 60 * 1000
)

var errLowPressure = &errors.Error{
	Kind:    errors.SafetyViolation,
	Message: "Insufficient system pressure",
}

// Bubble sprays repair solution through a PWM nozzle while the supply
// pressure switch stays closed.
func Bubble(hw Hardware) Module {
	supply := hw.Digital(SupplyPin)

	return Module{
		Name: BubbleName,
		Schedules: []sensor.Schedule{{
			Name:   "environment",
			Period: bubblePeriod,
			Channels: []*sensor.Channel{
				{
					Name:        "flow_rate",
					Source:      hw.Analog(FlowPin),
					Calibration: calibration.Flow,
				},
				{
					Name:        "tank_level",
					Source:      hw.Analog(TankLevelPin),
					Calibration: calibration.Flow,
				},
				{
					// The supply switch is averaged like an analog input,
					// so the value reports the recent duty of good pressure.
					Name:        "system_pressure",
					Source:      supply,
					Calibration: calibration.Pressure,
				},
			},
		}},
		Actions: []actuator.Action{{
			Name:     "spray",
			Required: []string{"duration", "intensity"},
			Output:   hw.Output(NozzlePin),
			Level: func(p actuator.Params) uint32 {
				intensity := int(math.Max(0, math.Min(p["intensity"], 100)))
				return actuator.Clamp(float64(intensity*255/100), 0, 255)
			},
			Guard: func(*actuator.Run) error {
				if !high(supply) {
					return errLowPressure
				}
				return nil
			},
			Complete: func(r *actuator.Run) bool {
				return r.Elapsed() >= millis(r.Param("duration"))
			},
			TimeoutFor: func(p actuator.Params) time.Duration {
				return millis(p["duration"]) + sprayGrace
			},
			Interval:     sprayInterval,
			StartMessage: "Spraying repair solution...",
			DoneMessage:  "Spraying completed",
			Limits: map[string]actuator.Limit{
				"duration": {Min: 0, Max: MaxSprayDuration},
			},
		}},
	}
}

func millis(v float64) time.Duration {
	if v < 0 {
		return 0
	}
	return time.Duration(v * float64(time.Millisecond))
}
