// Package retry runs an operation with exponential backoff and jitter,
// retrying only errors the caller classifies as transient.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"time"
)

// ErrAttemptsExhausted wraps the last error once every attempt has
// failed with a retryable error.
var ErrAttemptsExhausted = errors.New("all retry attempts failed")

// Policy configures backoff behavior. The zero value is usable and maps
// to 3 attempts starting at 1s, doubling, capped at 30s, with jitter.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Jitter is the random fraction (0 to 1) of each delay added on top,
	// so concurrent workers do not retry in lockstep.
	Jitter float64
	// Retryable classifies errors. Nil means Transient.
	Retryable func(error) bool
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.Multiplier <= 1 {
		p.Multiplier = 2.0
	}
	if p.Retryable == nil {
		p.Retryable = Transient
	}
	return p
}

// Transient reports whether err looks like a temporary network or
// server-side failure. Timeouts, DNS and connection errors qualify;
// everything else is treated as permanent.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Do runs fn until it succeeds, returns a non-retryable error, the
// attempts are exhausted, or ctx is canceled. The attempt number passed
// to fn starts at 1.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	p = p.withDefaults()

	delay := p.InitialDelay
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}

		sleep := delay
		if p.Jitter > 0 {
			sleep += time.Duration(rand.Float64() * p.Jitter * float64(delay))
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, p.MaxAttempts, lastErr)
}
