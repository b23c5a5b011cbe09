// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package sim

import (
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/modules"
)

// Rates of the simulated mechanics.
const (
	// Full nozzle duty empties the tank reading by this many counts/s.
	tankDrainPerSecond = 40.0
	// Flow reading at full nozzle duty.
	fullFlow = 1200.0

	// A full greenhouse stroke takes this long.
	strokeTime = 2 * time.Second

	// Needle travel at full motor duty, in depth counts/s.
	needleSpeed = 600.0
	// Needle retraction speed in depth counts/s.
	needleReturn = 1200.0
)

type bubble struct{}

func (bubble) init(b *Board) {
	b.analog[modules.TankLevelPin] = 3000
	b.analog[modules.FlowPin] = 0
	b.digital[modules.SupplyPin] = true
}

func (bubble) step(b *Board, dt time.Duration) {
	duty := float64(b.outputs[modules.NozzlePin]) / 255
	b.analog[modules.FlowPin] = duty * fullFlow
	tank := b.analog[modules.TankLevelPin] - duty*tankDrainPerSecond*dt.Seconds()
	b.analog[modules.TankLevelPin] = clamp(tank, 0, adcMax)
	if tank <= 0 {
		// An empty tank drops the supply pressure.
		b.digital[modules.SupplyPin] = false
	}
}

// greenhouse tracks how far along its stroke the cover is, 0 being fully
// retracted.
type greenhouse struct {
	travel time.Duration
}

func (g *greenhouse) init(b *Board) {
	b.analog[modules.TemperaturePin] = 300 // 25 °C
	b.analog[modules.HumidityPin] = 2048
	g.report(b)
}

func (g *greenhouse) step(b *Board, dt time.Duration) {
	if b.outputs[modules.DeployPin] != 0 {
		g.travel += dt
	}
	if b.outputs[modules.RetractPin] != 0 {
		g.travel -= dt
	}
	g.travel = max(0, min(strokeTime, g.travel))
	g.report(b)
}

func (g *greenhouse) report(b *Board) {
	b.digital[modules.DeployFeedbackPin] = g.travel >= strokeTime
	b.digital[modules.RetractFeedbackPin] = g.travel <= 0
}

// injection keeps the needle depth in ADC counts.
type injection struct{}

func (injection) init(b *Board) {
	b.analog[modules.InjectPressurePin] = 100
	b.digital[modules.NeedlePin] = false
}

func (injection) step(b *Board, dt time.Duration) {
	depth := b.analog[modules.DepthPin]
	duty := float64(b.outputs[modules.MotorPin]) / 255
	switch {
	case duty > 0:
		depth += duty * needleSpeed * dt.Seconds()
		b.analog[modules.InjectPressurePin] = 100 + duty*1000
	case depth > 0:
		// The needle springs back once the motor is released.
		depth -= needleReturn * dt.Seconds()
		b.analog[modules.InjectPressurePin] = 100
	}
	depth = clamp(depth, 0, adcMax)
	b.analog[modules.DepthPin] = depth
	b.digital[modules.NeedlePin] = depth > 0
}
