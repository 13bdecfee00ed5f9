package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("dial tcp: refused"), false},
		{"429", &HTTPError{StatusCode: 429}, true},
		{"503 wrapped", fmt.Errorf("send: %w", &HTTPError{StatusCode: 503}), true},
		{"400", &HTTPError{StatusCode: 400}, false},
		{"404", &HTTPError{StatusCode: 404}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := ParseRetryAfter("7"); got != 7*time.Second {
		t.Errorf("ParseRetryAfter(7) = %v", got)
	}
	if got := ParseRetryAfter(""); got != 0 {
		t.Errorf("ParseRetryAfter(empty) = %v", got)
	}
	if got := ParseRetryAfter("soon"); got != 0 {
		t.Errorf("ParseRetryAfter(garbage) = %v", got)
	}
	past := time.Now().Add(-time.Hour).UTC().Format(time.RFC1123)
	if got := ParseRetryAfter(past); got != 0 {
		t.Errorf("ParseRetryAfter(past date) = %v", got)
	}
}

func TestFullJitterSleepBounds(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := FullJitterSleep(attempt, 10*time.Millisecond, 50*time.Millisecond)
		if d < 0 || d > 50*time.Millisecond {
			t.Fatalf("attempt %d: sleep %v out of bounds", attempt, d)
		}
	}
	if d := FullJitterSleep(3, 0, time.Second); d != 0 {
		t.Errorf("zero base delay gave %v", d)
	}
}

func TestDoRetriesRetryableErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Options{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return &HTTPError{StatusCode: 502}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Options{MaxRetries: 5, BaseDelay: time.Millisecond}, func() error {
		calls++
		return &HTTPError{StatusCode: 400}
	})
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != 400 {
		t.Fatalf("err = %v, want HTTPError 400", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Options{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}, func() error {
		calls++
		return &HTTPError{StatusCode: 429, RetryAfter: time.Millisecond}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, Options{MaxRetries: 3}, func() error {
		t.Fatal("fn must not be called")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestDoReportsRetriesAndUsesRetryAfter(t *testing.T) {
	var waits []time.Duration
	var attempts []int
	calls := 0
	err := Do(context.Background(), Options{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   3 * time.Millisecond,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			attempts = append(attempts, attempt)
			waits = append(waits, wait)
		},
	}, func() error {
		calls++
		if calls == 1 {
			// capped by MaxDelay
			return &HTTPError{StatusCode: 429, RetryAfter: time.Second}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(attempts) != 1 || attempts[0] != 1 {
		t.Fatalf("OnRetry attempts = %v, want [1]", attempts)
	}
	if waits[0] != 3*time.Millisecond {
		t.Errorf("wait = %v, want Retry-After clamped to 3ms", waits[0])
	}
}
