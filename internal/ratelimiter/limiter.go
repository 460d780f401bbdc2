package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// PollLimiter is a token bucket shared by every monitoring session so that
// many sessions started at once cannot flood the status endpoint.
// Burst equals the rate: a full second's worth of polls may go out together.
type PollLimiter struct {
	limiter *rate.Limiter
}

// New creates a PollLimiter allowing ratePerSec polls per second.
// A non-positive rate disables limiting.
func New(ratePerSec int) *PollLimiter {
	if ratePerSec <= 0 {
		return &PollLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	return &PollLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)}
}

// Wait blocks until a poll may be sent.
// Returns a non-nil error only if ctx is cancelled while waiting.
// A nil PollLimiter never blocks.
func (pl *PollLimiter) Wait(ctx context.Context) error {
	if pl == nil {
		return ctx.Err()
	}
	return pl.limiter.Wait(ctx)
}
