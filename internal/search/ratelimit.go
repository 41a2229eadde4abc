package search

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces the mandatory inter-call delay. It is a scheduling floor
// that applies to every request regardless of outcome, separate from retry
// backoff, so the provider's per-second ceiling is respected even when all
// calls succeed.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a pacer allowing one call per delay interval. A zero or
// negative delay disables pacing.
func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{
		limiter: rate.NewLimiter(rate.Every(delay), 1),
	}
}

// Wait blocks until the next call is allowed or the context is canceled.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
