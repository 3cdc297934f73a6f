// Package stepper converts step requests into timed pulse trains on GPIO
// outputs, either as full phase patterns on a directly wired motor or as
// STEP/DIR pulses to a microstepping driver.
package stepper

import (
	"context"
	"time"

	"github.com/juju/clock"
)

// FullStepsPerRotation is the number of full steps of the probe motors.
const FullStepsPerRotation = 200

// WaitUntil blocks until clk reaches deadline or ctx is done.
func WaitUntil(ctx context.Context, clk clock.Clock, deadline time.Time) error {
	for {
		now := clk.Now()
		if !now.Before(deadline) {
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clk.After(deadline.Sub(now)):
		}
	}
}

// Wait blocks for d on clk or until ctx is done.
func Wait(ctx context.Context, clk clock.Clock, d time.Duration) error {
	return WaitUntil(ctx, clk, clk.Now().Add(d))
}
