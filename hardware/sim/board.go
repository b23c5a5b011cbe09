// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package sim provides simulated module hardware with simple physics driven
// by the injected clock, for bench runs and end-to-end tests.
package sim

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/actuator"
	"github.com/ObsidianArch02/eco-exoskeleton-project/errors"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/log"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/options"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/wallclock"
	"github.com/ObsidianArch02/eco-exoskeleton-project/modules"
	"github.com/ObsidianArch02/eco-exoskeleton-project/sensor"
)

const adcMax = 4095

type (
	// Board is a simulated module board. It is safe for concurrent use.
	Board struct {
		mu      sync.Mutex
		clock   wallclock.WallClock
		log     log.Logger
		noise   float64
		rand    *rand.Rand
		model   model
		updated time.Time

		analog  map[string]float64
		digital map[string]bool
		outputs map[string]uint32
		levels  map[string][]uint32
		faults  map[string]error

		// Overrides pin inputs regardless of the physics.
		pinned map[string]float64
	}

	// model advances the physical state by dt.
	model interface {
		init(b *Board)
		step(b *Board, dt time.Duration)
	}

	// Option represents a single board option.
	Option interface{ board(*Options) }

	// Options are the resolved board options.
	Options struct {
		Clock  wallclock.WallClock
		Noise  float64
		Seed   uint64
		Logger *slog.Logger
	}

	// WithNoise sets the amplitude, in ADC counts, of uniform noise added to
	// analog reads.
	WithNoise float64

	// WithSeed seeds the noise generator.
	WithSeed uint64

	withClock  struct{ wallclock.WallClock }
	withLogger struct{ *slog.Logger }
)

var _ modules.Hardware = (*Board)(nil)

// New creates a board simulating the named module.
func New(module string, opt ...Option) (*Board, error) {
	var opts Options
	opts.Apply(opt)

	var m model
	switch module {
	case modules.BubbleName:
		m = bubble{}
	case modules.GreenhouseName:
		m = &greenhouse{}
	case modules.InjectionName:
		m = injection{}
	default:
		return nil, &errors.Error{
			Kind:          errors.ConfigurationInvalid,
			Message:       "no simulation for module",
			PropertyName:  "module",
			PropertyValue: module,
		}
	}

	clock := wallclock.OrSystem(opts.Clock)
	b := &Board{
		clock:   clock,
		log:     log.Wrap(opts.Logger).With("module", module),
		noise:   opts.Noise,
		rand:    rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		model:   m,
		updated: clock.Now(),
		analog:  map[string]float64{},
		digital: map[string]bool{},
		outputs: map[string]uint32{},
		levels:  map[string][]uint32{},
		faults:  map[string]error{},
		pinned:  map[string]float64{},
	}
	m.init(b)
	return b, nil
}

// Analog returns the source of a 12-bit ADC input.
func (b *Board) Analog(name string) sensor.Source {
	return sensor.SourceFunc(func() float64 {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.advance()
		if v, ok := b.pinned[name]; ok {
			return v
		}
		v := b.analog[name]
		if b.noise > 0 {
			v += (b.rand.Float64()*2 - 1) * b.noise
		}
		return math.Round(clamp(v, 0, adcMax))
	})
}

// Digital returns the source of a GPIO input.
func (b *Board) Digital(name string) sensor.Source {
	return sensor.SourceFunc(func() float64 {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.advance()
		if v, ok := b.pinned[name]; ok {
			return v
		}
		if b.digital[name] {
			return 1
		}
		return 0
	})
}

// Output returns a PWM or GPIO output.
func (b *Board) Output(name string) actuator.Output {
	return actuator.OutputFunc(func(level uint32) error {
		b.mu.Lock()
		defer b.mu.Unlock()
		if err := b.faults[name]; err != nil {
			return err
		}
		b.advance()
		b.outputs[name] = level
		b.levels[name] = append(b.levels[name], level)
		b.log.Log(context.Background(), slog.LevelDebug, "output set",
			slog.String("output", name),
			slog.Int("level", int(level)),
		)
		return nil
	})
}

// PinAnalog holds an analog input at v until released.
func (b *Board) PinAnalog(name string, v float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pinned[name] = v
}

// PinDigital holds a digital input at v until released.
func (b *Board) PinDigital(name string, v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pinned[name] = 0
	if v {
		b.pinned[name] = 1
	}
}

// Release returns an input to the simulated physics.
func (b *Board) Release(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pinned, name)
}

// FailOutput makes every subsequent Set of the output return err; a nil err
// clears the fault.
func (b *Board) FailOutput(name string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.faults, name)
		return
	}
	b.faults[name] = err
}

// Level returns the current level of an output.
func (b *Board) Level(name string) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.outputs[name]
}

// Levels returns every level written to an output, in order.
func (b *Board) Levels(name string) []uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]uint32(nil), b.levels[name]...)
}

// advance steps the physics up to the current clock time. The caller holds
// the lock.
func (b *Board) advance() {
	now := b.clock.Now()
	if dt := now.Sub(b.updated); dt > 0 {
		b.model.step(b, dt)
		b.updated = now
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// WithClock drives the physics from the clock.
func WithClock(c wallclock.WallClock) Option { return withClock{c} }

// WithLogger logs output changes at debug level.
func WithLogger(l *slog.Logger) Option { return withLogger{l} }

// Apply resolves the provided list of options.
func (o *Options) Apply(opts []Option, rest ...Option) {
	for opt := range options.Apply[Option](opts, rest...) {
		opt.board(o)
	}
}

func (o *Options) board(opt *Options) {
	if o != nil {
		*opt = *o
	}
}

func (o WithNoise) board(opt *Options)  { opt.Noise = float64(o) }
func (o WithSeed) board(opt *Options)   { opt.Seed = uint64(o) }
func (o withClock) board(opt *Options)  { opt.Clock = o.WallClock }
func (o withLogger) board(opt *Options) { opt.Logger = o.Logger }
