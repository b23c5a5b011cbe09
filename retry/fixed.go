// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/log"
	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/wallclock"
)

// Fixed implements a retry policy with a constant delay between a bounded
// number of attempts.
type Fixed struct {
	// MaxAttempts sets the maximum number of attempts. The default value of 0
	// indicates unlimited attempts; setting this to 1 will disable retries.
	MaxAttempts uint64

	// Interval is the delay between attempts. A zero interval retries
	// immediately.
	Interval time.Duration

	// Clock is the time source used for waiting; defaults to the system clock.
	Clock wallclock.WallClock

	// Logger provides a logger which will be used to log retry attempts and
	// results.
	Logger *slog.Logger
}

// Start initiates the retry executions.
func (f *Fixed) Start(ctx context.Context, name string, task Task) error {
	return run(ctx, f.Clock, logger{log.Wrap(f.Logger)}, name, task,
		func(attempt uint64, retry bool) time.Duration {
			if !retry || attempt == f.MaxAttempts {
				return 0
			}
			// A zero wait would end the loop, so immediate retries wait 1ns.
			return max(f.Interval, time.Nanosecond)
		},
	)
}
