// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package sensor turns raw readings into timestamped, calibrated samples on
// fixed per-schedule periods.
package sensor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/errors"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/log"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/wallclock"
	"github.com/ObsidianArch02/eco-exoskeleton-project/metrics"
)

type (
	// Publisher hands a merged sample outward.
	Publisher interface {
		PublishSample(ctx context.Context, sample Sample) error
	}

	// Schedule groups channels sampled together on one period.
	Schedule struct {
		Name     string
		Period   time.Duration
		Channels []*Channel
	}

	// Pipeline runs the schedules. It is driven by the control loop and is
	// not safe for concurrent use.
	Pipeline struct {
		publisher Publisher
		schedules []*schedule
		clock     wallclock.WallClock
		metrics   *metrics.Metrics
		log       log.Logger
	}

	schedule struct {
		Schedule
		next    time.Time
		started bool
	}
)

// New validates the schedules and creates a pipeline publishing to p.
func New(p Publisher, schedules []Schedule, opt ...Option) (*Pipeline, error) {
	var opts Options
	opts.Apply(opt)

	pl := &Pipeline{
		publisher: p,
		clock:     wallclock.OrSystem(opts.Clock),
		metrics:   opts.Metrics,
		log:       log.Wrap(opts.Logger),
	}

	names := map[string]bool{}
	for i, s := range schedules {
		if s.Period <= 0 {
			return nil, &errors.Error{
				Kind:          errors.ConfigurationInvalid,
				Message:       "schedule period must be positive",
				PropertyName:  fmt.Sprintf("schedules[%d].period", i),
				PropertyValue: s.Period,
			}
		}
		for _, c := range s.Channels {
			switch {
			case c == nil || c.Source == nil:
				return nil, &errors.Error{
					Kind:         errors.ConfigurationInvalid,
					Message:      "channel has no source",
					PropertyName: fmt.Sprintf("schedules[%d].channels", i),
				}
			case c.Name == "" || names[c.Name]:
				return nil, &errors.Error{
					Kind:          errors.ConfigurationInvalid,
					Message:       "channel names must be unique and non-empty",
					PropertyName:  "channel",
					PropertyValue: c.Name,
				}
			}
			names[c.Name] = true
		}
		pl.schedules = append(pl.schedules, &schedule{Schedule: s})
	}
	return pl, nil
}

// Tick samples and publishes every schedule that is due, returning the number
// of samples produced. The first tick of each schedule is due immediately;
// each later one is one period after the previous tick, so ticks missed while
// the loop was blocked are not back-filled.
func (p *Pipeline) Tick(ctx context.Context) int {
	now := p.clock.Now()
	produced := 0
	for _, s := range p.schedules {
		if s.started && now.Before(s.next) {
			continue
		}
		s.started = true
		s.next = now.Add(s.Period)

		sample := Sample{
			Schedule: s.Name,
			Time:     now,
			Readings: make([]Reading, 0, len(s.Channels)),
		}
		for _, c := range s.Channels {
			r := c.Sample()
			sample.Readings = append(sample.Readings, r)
			p.metrics.SensorValue(r.Channel, r.Value)
			p.log.Log(ctx, slog.LevelDebug, "sensor sample",
				slog.String("channel", r.Channel),
				slog.Float64("raw", r.Raw),
				slog.Float64("value", r.Value),
			)
		}
		produced++

		if err := p.publisher.PublishSample(ctx, sample); err != nil {
			p.log.Warn(ctx, err, slog.String("schedule", s.Name))
		}
	}
	return produced
}

// Next returns the earliest time at which a schedule becomes due. It is the
// zero time before the first tick.
func (p *Pipeline) Next() time.Time {
	var next time.Time
	for i, s := range p.schedules {
		if !s.started {
			return time.Time{}
		}
		if i == 0 || s.next.Before(next) {
			next = s.next
		}
	}
	return next
}

// Reset clears every channel filter and makes all schedules due.
func (p *Pipeline) Reset() {
	for _, s := range p.schedules {
		s.started = false
		for _, c := range s.Channels {
			c.Reset()
		}
	}
}
