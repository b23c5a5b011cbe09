// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package modules

import (
	"math"
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/actuator"
	"github.com/ObsidianArch02/eco-exoskeleton-project/calibration"
	"github.com/ObsidianArch02/eco-exoskeleton-project/sensor"
)

// Injection pins and parameters.
const (
	InjectionName = "injection"

	MotorPin          = "motor"
	DepthPin          = "depth"
	InjectPressurePin = "pressure"
	NeedlePin         = "needle_feedback"

	injectionPeriod   = 200 * time.Millisecond
	injectionInterval = 50 * time.Millisecond
	injectionTimeout  = 10 * time.Second

	// Below this duty the motor stalls.
	minMotorPower = 150
	maxMotorPower = 255
)

// Injection drives a needle into the soil until the depth sensor reaches the
// requested count.
func Injection(hw Hardware) Module {
	depth := hw.Analog(DepthPin)
	motor := hw.Output(MotorPin)

	return Module{
		Name: InjectionName,
		Schedules: []sensor.Schedule{{
			Name:   "probe",
			Period: injectionPeriod,
			Channels: []*sensor.Channel{
				{
					Name:        "depth",
					Source:      depth,
					Calibration: calibration.Pressure,
				},
				{
					Name:        "pressure",
					Source:      hw.Analog(InjectPressurePin),
					Calibration: calibration.Pressure,
				},
				{
					Name:    "needle_position",
					Source:  hw.Digital(NeedlePin),
					Digital: true,
				},
			},
		}},
		Actions: []actuator.Action{
			{
				Name:     "inject",
				Required: []string{"depth", "pressure"},
				Output:   motor,
				Level: func(p actuator.Params) uint32 {
					power := int(math.Max(0, math.Min(p["pressure"], 300))) * 255 / 300
					return actuator.Clamp(float64(power), minMotorPower, maxMotorPower)
				},
				// Progress is judged on the unfiltered depth count.
				Complete: func(r *actuator.Run) bool {
					return depth.Read() >= math.Trunc(r.Param("depth"))
				},
				Timeout:        injectionTimeout,
				Interval:       injectionInterval,
				StartMessage:   "Starting injection...",
				DoneMessage:    "Injection completed",
				TimeoutMessage: "Injection timeout",
			},
			{
				Name:         "retract",
				Output:       motor,
				Level:        func(actuator.Params) uint32 { return 0 },
				Instant:      true,
				StartMessage: "Retracting needle",
			},
		},
	}
}
