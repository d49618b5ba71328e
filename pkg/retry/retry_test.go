package retry

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func fastPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Retryable:    func(error) bool { return true },
	}
}

func TestSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), func(ctx context.Context, attempt int) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetriesThenSucceeds(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(), func(ctx context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return errBoom
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestExhaustionWrapsLastError(t *testing.T) {
	err := Do(context.Background(), fastPolicy(), func(ctx context.Context, attempt int) error {
		return errBoom
	})
	if !errors.Is(err, ErrAttemptsExhausted) {
		t.Errorf("expected ErrAttemptsExhausted, got %v", err)
	}
	if !errors.Is(err, errBoom) {
		t.Errorf("expected last error wrapped, got %v", err)
	}
}

func TestNonRetryableStopsImmediately(t *testing.T) {
	p := fastPolicy()
	p.Retryable = func(error) bool { return false }

	calls := 0
	err := Do(context.Background(), p, func(ctx context.Context, attempt int) error {
		calls++
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("Do() error = %v, want errBoom", err)
	}
	if errors.Is(err, ErrAttemptsExhausted) {
		t.Error("non-retryable error should not be wrapped as exhaustion")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestContextCancelDuringBackoff(t *testing.T) {
	p := fastPolicy()
	p.InitialDelay = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := Do(ctx, p, func(ctx context.Context, attempt int) error {
		return errBoom
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestTransientClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errBoom, false},
		{"dns error", &net.DNSError{Err: "no such host"}, true},
		{"op error", &net.OpError{Op: "read", Err: errors.New("connection reset")}, true},
		{"deadline", context.DeadlineExceeded, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Transient(tt.err); got != tt.want {
				t.Errorf("Transient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
