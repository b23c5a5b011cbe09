// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package modules

import (
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/actuator"
	"github.com/ObsidianArch02/eco-exoskeleton-project/calibration"
	"github.com/ObsidianArch02/eco-exoskeleton-project/sensor"
)

// Greenhouse pins and parameters.
const (
	GreenhouseName = "greenhouse"

	DeployPin          = "deploy"
	RetractPin         = "retract"
	DeployFeedbackPin  = "deploy_feedback"
	RetractFeedbackPin = "retract_feedback"
	TemperaturePin     = "temperature"
	HumidityPin        = "humidity"

	greenhousePeriod   = time.Second
	greenhouseInterval = 100 * time.Millisecond
	greenhouseTimeout  = 5 * time.Second
)

// Greenhouse deploys and retracts a cover, each motion driven until its end
// stop reports.
func Greenhouse(hw Hardware) Module {
	deployed := hw.Digital(DeployFeedbackPin)
	retracted := hw.Digital(RetractFeedbackPin)

	return Module{
		Name: GreenhouseName,
		Schedules: []sensor.Schedule{{
			Name:   "climate",
			Period: greenhousePeriod,
			Channels: []*sensor.Channel{
				{
					Name:        "temperature",
					Source:      hw.Analog(TemperaturePin),
					Calibration: calibration.Temperature,
				},
				{
					Name:        "humidity",
					Source:      hw.Analog(HumidityPin),
					Calibration: calibration.Humidity,
				},
				{Name: "deployed", Source: deployed, Digital: true},
				{Name: "retracted", Source: retracted, Digital: true},
			},
		}},
		Actions: []actuator.Action{
			motion(
				"deploy", hw.Output(DeployPin), deployed,
				"DEPLOYED", "Deploying greenhouse...",
				"Greenhouse deployment complete",
				"Greenhouse deployment timeout",
			),
			motion(
				"retract", hw.Output(RetractPin), retracted,
				"RETRACTED", "Retracting greenhouse...",
				"Greenhouse retraction complete",
				"Greenhouse retraction timeout",
			),
		},
	}
}

func motion(
	name string,
	out actuator.Output,
	endStop sensor.Source,
	doneLabel, start, done, timeout string,
) actuator.Action {
	return actuator.Action{
		Name:   name,
		Output: out,
		Level:  func(actuator.Params) uint32 { return 1 },
		Complete: func(*actuator.Run) bool {
			return high(endStop)
		},
		Timeout:        greenhouseTimeout,
		Interval:       greenhouseInterval,
		StartMessage:   start,
		DoneLabel:      doneLabel,
		DoneMessage:    done,
		TimeoutMessage: timeout,
	}
}
