// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package sim_test

import (
	stderr "errors"
	"testing"
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/errors"
	"github.com/ObsidianArch02/eco-exoskeleton-project/hardware/sim"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/wallclock"
	"github.com/ObsidianArch02/eco-exoskeleton-project/modules"
	"github.com/stretchr/testify/require"
)

func board(t *testing.T, module string, opt ...sim.Option) (*sim.Board, *wallclock.Manual) {
	clock := wallclock.NewManual()
	b, err := sim.New(module, append([]sim.Option{sim.WithClock(clock)}, opt...)...)
	require.NoError(t, err)
	return b, clock
}

func TestUnknownModule(t *testing.T) {
	_, err := sim.New("drone")
	require.True(t, errors.IsKind(err, errors.ConfigurationInvalid))
}

func TestBubbleTankDrains(t *testing.T) {
	b, clock := board(t, modules.BubbleName)
	tank := b.Analog(modules.TankLevelPin)
	flow := b.Analog(modules.FlowPin)

	require.Equal(t, 3000.0, tank.Read())
	require.NoError(t, b.Output(modules.NozzlePin).Set(255))
	clock.Advance(10 * time.Second)

	require.Equal(t, 2600.0, tank.Read())
	require.Equal(t, 1200.0, flow.Read())
}

func TestBubbleEmptyTankDropsPressure(t *testing.T) {
	b, clock := board(t, modules.BubbleName)
	supply := b.Digital(modules.SupplyPin)

	require.Equal(t, 1.0, supply.Read())
	require.NoError(t, b.Output(modules.NozzlePin).Set(255))
	clock.Advance(2 * time.Minute)
	require.Equal(t, 0.0, supply.Read())
}

func TestGreenhouseStroke(t *testing.T) {
	b, clock := board(t, modules.GreenhouseName)
	deployed := b.Digital(modules.DeployFeedbackPin)
	retracted := b.Digital(modules.RetractFeedbackPin)

	require.Equal(t, 0.0, deployed.Read())
	require.Equal(t, 1.0, retracted.Read())

	require.NoError(t, b.Output(modules.DeployPin).Set(1))
	clock.Advance(time.Second)
	require.Equal(t, 0.0, deployed.Read())
	require.Equal(t, 0.0, retracted.Read())

	clock.Advance(time.Second)
	require.Equal(t, 1.0, deployed.Read())
}

func TestInjectionNeedle(t *testing.T) {
	b, clock := board(t, modules.InjectionName)
	depth := b.Analog(modules.DepthPin)
	needle := b.Digital(modules.NeedlePin)

	require.NoError(t, b.Output(modules.MotorPin).Set(255))
	clock.Advance(time.Second)
	require.Equal(t, 600.0, depth.Read())
	require.Equal(t, 1.0, needle.Read())

	require.NoError(t, b.Output(modules.MotorPin).Set(0))
	clock.Advance(time.Second)
	require.Equal(t, 0.0, depth.Read())
	require.Equal(t, 0.0, needle.Read())
}

func TestPinnedInputs(t *testing.T) {
	b, _ := board(t, modules.GreenhouseName)
	temperature := b.Analog(modules.TemperaturePin)

	b.PinAnalog(modules.TemperaturePin, 1000)
	require.Equal(t, 1000.0, temperature.Read())
	b.Release(modules.TemperaturePin)
	require.Equal(t, 300.0, temperature.Read())

	b.PinDigital(modules.RetractFeedbackPin, false)
	require.Equal(t, 0.0, b.Digital(modules.RetractFeedbackPin).Read())
}

func TestNoiseStaysInRange(t *testing.T) {
	b, _ := board(t, modules.GreenhouseName, sim.WithNoise(50), sim.WithSeed(7))
	humidity := b.Analog(modules.HumidityPin)

	for range 100 {
		v := humidity.Read()
		require.GreaterOrEqual(t, v, 1998.0)
		require.LessOrEqual(t, v, 2098.0)
	}
}

func TestOutputFault(t *testing.T) {
	b, _ := board(t, modules.InjectionName)
	fault := stderr.New("driver overcurrent")
	motor := b.Output(modules.MotorPin)

	b.FailOutput(modules.MotorPin, fault)
	require.ErrorIs(t, motor.Set(200), fault)
	b.FailOutput(modules.MotorPin, nil)
	require.NoError(t, motor.Set(200))
	require.Equal(t, []uint32{200}, b.Levels(modules.MotorPin))
	require.Equal(t, uint32(200), b.Level(modules.MotorPin))
}
