package ledstrip

import (
	"context"
	"math"
	"time"
)

// DefaultFadeStep is the cadence used for fades when the caller does not ask
// for one.
const DefaultFadeStep = 200 * time.Millisecond

// Fade transitions the strip from its current committed color to target over
// the given duration, stepping at roughly the given interval. A non-positive
// step falls back to DefaultFadeStep.
//
// The step count is round(duration/step), at least 1, and the per-step sleep
// is duration/steps, so the whole fade takes the requested duration even when
// it is not an exact multiple of the step. Channel deltas accumulate in
// floating point and are only rounded by SetColor, so error does not compound
// across steps; the last step lands on target. Steps whose rounded color
// matches the previous one send nothing.
//
// Fade blocks for the full duration. Canceling ctx stops it between steps,
// leaving the strip at the last committed color.
func (c *Controller) Fade(ctx context.Context, target Color, duration, step time.Duration) error {
	if step <= 0 {
		step = DefaultFadeStep
	}

	steps := int(math.Round(float64(duration) / float64(step)))
	if steps < 1 {
		steps = 1
	}
	sleep := duration / time.Duration(steps)

	start := c.Color()
	r, g, b := float64(start[0]), float64(start[1]), float64(start[2])
	dr := (float64(target[0]) - r) / float64(steps)
	dg := (float64(target[1]) - g) / float64(steps)
	db := (float64(target[2]) - b) / float64(steps)

	timer := time.NewTimer(sleep)
	defer timer.Stop()

	for i := 0; i < steps; i++ {
		if i > 0 {
			timer.Reset(sleep)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		r += dr
		g += dg
		b += db

		if err := c.SetColor(r, g, b); err != nil {
			return err
		}
	}

	return nil
}
