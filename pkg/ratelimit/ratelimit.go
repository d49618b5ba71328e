// Package ratelimit spaces out requests to a single host. Reddit rate
// limits aggressively on burstiness, so the limiter enforces a minimum
// interval between operations and adds random jitter so the request
// cadence does not look machine-generated.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Limiter enforces a minimum interval between calls to Wait, with an
// optional jitter fraction of the interval added on top. Safe for
// concurrent use; concurrent callers queue behind each other.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	jitter   float64
	next     time.Time
}

// New creates a limiter allowing rps requests per second. jitter is a
// fraction of the interval (0 to 1) added randomly to each wait. An rps
// of zero or less disables limiting.
func New(rps float64, jitter float64) *Limiter {
	l := &Limiter{}
	if rps > 0 {
		l.interval = time.Duration(float64(time.Second) / rps)
	}
	if jitter > 0 {
		if jitter > 1 {
			jitter = 1
		}
		l.jitter = jitter
	}
	return l
}

// Wait blocks until the caller may proceed or the context is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.interval == 0 {
		return ctx.Err()
	}

	l.mu.Lock()
	now := time.Now()
	wait := l.next.Sub(now)
	if wait < 0 {
		wait = 0
	}

	step := l.interval
	if l.jitter > 0 {
		step += time.Duration(rand.Float64() * l.jitter * float64(l.interval))
	}
	if l.next.Before(now) {
		l.next = now.Add(step)
	} else {
		l.next = l.next.Add(step)
	}
	l.mu.Unlock()

	if wait == 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
