package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Chative-Agent-Router/agent/contract"
)

var fastRetry = RetryConfig{
	MaxAttempts:     3,
	InitialInterval: time.Millisecond,
	MaxInterval:     2 * time.Millisecond,
	Multiplier:      2,
}

func TestIsOverloaded(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want bool
	}{
		{err: nil, want: false},
		{err: errors.New("Error 503, Message: The model is overloaded"), want: true},
		{err: errors.New("RESOURCE_EXHAUSTED: quota"), want: true},
		{err: fmt.Errorf("wrapped: %w", contractx.ErrProviderOverloaded), want: true},
		{err: errors.New("invalid argument"), want: false},
		{err: context.DeadlineExceeded, want: false},
	}
	for _, tc := range cases {
		if got := IsOverloaded(tc.err); got != tc.want {
			t.Fatalf("IsOverloaded(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("bad request")
	calls := 0
	_, err := Retry(context.Background(), fastRetry, "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetryRecoversFromOverload(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := Retry(context.Background(), fastRetry, "test", func(ctx context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("503 service unavailable")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if got != "ok" || calls != 2 {
		t.Fatalf("got %q after %d calls", got, calls)
	}
}

func TestRetryExhaustedWrapsOverloaded(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := Retry(context.Background(), fastRetry, "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("model is overloaded")
	})
	if !errors.Is(err, contractx.ErrProviderOverloaded) {
		t.Fatalf("expected ErrProviderOverloaded, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}
