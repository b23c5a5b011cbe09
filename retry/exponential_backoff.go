// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package retry

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/log"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/wallclock"
)

// ExponentialBackoff implements a retry policy with exponential backoff and
// optional jitter.
type ExponentialBackoff struct {
	// MaxAttempts sets the maximum number of attempts. The default value of 0
	// indicates unlimited attempts; setting this to 1 will disable retries.
	MaxAttempts uint64

	// MinInterval is the interval before the first retry (before jitter).
	// Will be set to a default of 1/8s if unspecified.
	MinInterval time.Duration

	// MaxInterval is the maximum interval between retries (before jitter).
	// Will be set to a default of 30s if unspecified.
	MaxInterval time.Duration

	// Timeout is the total timeout for all retries.
	Timeout time.Duration

	// NoJitter removes the default jitter.
	NoJitter bool

	// Clock is the time source used for waiting; defaults to the system clock.
	Clock wallclock.WallClock

	// Logger provides a logger which will be used to log retry attempts and
	// results.
	Logger *slog.Logger
}

// Start initiates the retry executions.
func (e *ExponentialBackoff) Start(
	ctx context.Context,
	name string,
	task Task,
) error {
	clock := wallclock.OrSystem(e.Clock)
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = clock.WithTimeoutCause(ctx, e.Timeout, nil)
		defer cancel()
	}

	return run(ctx, clock, logger{log.Wrap(e.Logger)}, name, task,
		func(attempt uint64, retry bool) time.Duration {
			if !retry || attempt == e.MaxAttempts {
				return 0
			}
			return e.interval(clock, attempt)
		},
	)
}

// interval computes the wait before the next attempt.
func (e *ExponentialBackoff) interval(
	clock wallclock.WallClock,
	attempt uint64,
) time.Duration {
	minInterval := e.MinInterval
	if minInterval == 0 {
		minInterval = time.Second / 8
	}

	maxInterval := e.MaxInterval
	if maxInterval == 0 {
		maxInterval = 30 * time.Second
	}

	// Calculate exponent and clamp to max exponent.
	factor := math.Pow(2, min(
		float64(attempt-1),
		math.Log2(float64(maxInterval)/float64(minInterval)),
	))
	if !e.NoJitter {
		// The jitter is between 95% and 105% of the base time.
		// #nosec G404
		j := rand.New(rand.NewSource(clock.Now().UnixNano())).Float64()
		factor *= .95 + .1*j
	}

	return time.Duration(factor * float64(minInterval))
}
