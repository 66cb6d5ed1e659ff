// Package ratelimit paces outbound search requests with a token bucket.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JakeFAU/fellowship-crawler/internal/metrics"
	"golang.org/x/time/rate"
)

// Pacer keeps at least one interval between the end of one request and the
// start of the next.
type Pacer struct {
	limit rate.Limit

	mu      sync.Mutex
	limiter *rate.Limiter
}

// New creates a Pacer that allows one request per interval.
// A non-positive interval disables pacing.
func New(interval time.Duration) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{limit: limit, limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next request may be issued, respecting the context.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	limiter := p.limiter
	p.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("pacer wait: %w", err)
	}
	// Immediate grants are not recorded.
	if d := time.Since(start); d > time.Millisecond {
		metrics.ObservePacingDelay(d)
	}
	return nil
}

// Done restarts the interval from now with an empty bucket, so a slow
// request does not let the next one through early.
func (p *Pacer) Done() {
	limiter := rate.NewLimiter(p.limit, 1)
	limiter.Allow()

	p.mu.Lock()
	p.limiter = limiter
	p.mu.Unlock()
}
