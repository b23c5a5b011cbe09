// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package retry

import (
	"context"
	"time"

	"github.com/ObsidianArch02/eco-exoskeleton-project/internal/wallclock"
)

// run drives a task until it succeeds, declines a retry, or interval reports
// that no further attempt should be made.
func run(
	ctx context.Context,
	clock wallclock.WallClock,
	l logger,
	name string,
	task Task,
	interval func(attempt uint64, retry bool) time.Duration,
) error {
	clock = wallclock.OrSystem(clock)

	for attempt := uint64(1); ; attempt++ {
		l.attempt(ctx, name, attempt)
		retry, err := task(ctx)
		if err == nil {
			l.complete(ctx, name, attempt, nil)
			return nil
		}

		wait := time.Duration(0)
		if ctx.Err() == nil {
			wait = interval(attempt, retry)
		}
		if wait <= 0 {
			l.complete(ctx, name, attempt, err)
			return err
		}

		l.wait(ctx, name, attempt, wait, err)
		select {
		case <-clock.After(wait):
		case <-ctx.Done():
			l.complete(ctx, name, attempt, ctx.Err())
			return ctx.Err()
		}
	}
}
