package fetch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/avdeev/switch-catalog/internal/metrics"
)

// Limiter is the single politeness gate shared by all fetch call sites.
// One token accrues per configured delay, so successive requests are spaced
// at least that far apart.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter builds a Limiter enforcing the given inter-request delay.
// A non-positive delay disables limiting.
func NewLimiter(delay time.Duration) *Limiter {
	r := rate.Inf
	if delay > 0 {
		r = rate.Every(delay)
	}
	return &Limiter{limiter: rate.NewLimiter(r, 1)}
}

// Wait blocks until the next request is allowed, respecting the context.
func (l *Limiter) Wait(ctx context.Context) error {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("politeness wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObservePolitenessDelay(waited)
	}
	return nil
}
