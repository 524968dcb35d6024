package connection

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoffSequence(t *testing.T) {
	b := NewBackoff(Policy{
		Base:        100 * time.Millisecond,
		Cap:         1 * time.Second,
		Multiplier:  2.0,
		Jitter:      0, // deterministic
		MaxAttempts: 10,
	})

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		1 * time.Second, // capped
		1 * time.Second,
	}
	for i, w := range want {
		if got := b.Next(); got != w {
			t.Errorf("Next() #%d = %v, want %v", i, got, w)
		}
	}
	if b.Attempts() != len(want) {
		t.Errorf("Attempts() = %d, want %d", b.Attempts(), len(want))
	}
}

func TestBackoffJitterBounds(t *testing.T) {
	base := 1 * time.Second
	b := NewBackoff(Policy{
		Base:        base,
		Cap:         time.Minute,
		Multiplier:  2.0,
		Jitter:      0.25,
		MaxAttempts: 100,
	})

	first := b.Next()
	if first < base || first > base+base/4 {
		t.Errorf("jittered delay %v outside [%v, %v]", first, base, base+base/4)
	}
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoff(Policy{Base: 10 * time.Millisecond, Cap: time.Second, Multiplier: 2, MaxAttempts: 3})

	b.Next()
	b.Next()
	b.Next()
	if !b.Exhausted() {
		t.Error("budget should be exhausted after MaxAttempts calls")
	}

	b.Reset()
	if b.Exhausted() {
		t.Error("Reset should restore the budget")
	}
	if b.Attempts() != 0 {
		t.Errorf("Attempts() after reset = %d, want 0", b.Attempts())
	}
	if b.Current() != 10*time.Millisecond {
		t.Errorf("Current() after reset = %v, want 10ms", b.Current())
	}
}

func TestPolicyNormalization(t *testing.T) {
	b := NewBackoff(Policy{})
	if b.Current() != DefaultBackoffBase {
		t.Errorf("zero policy base = %v, want %v", b.Current(), DefaultBackoffBase)
	}
}

func TestRetrySucceedsWithinBudget(t *testing.T) {
	policy := Policy{Base: time.Millisecond, Cap: 5 * time.Millisecond, Multiplier: 2, MaxAttempts: 5}

	calls := 0
	err := Retry(context.Background(), policy, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("still down")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("attempts = %d, want 3", calls)
	}
}

func TestRetryExhaustsBudget(t *testing.T) {
	policy := Policy{Base: time.Millisecond, Cap: 2 * time.Millisecond, Multiplier: 2, MaxAttempts: 4}

	sentinel := errors.New("connect refused")
	calls := 0
	err := Retry(context.Background(), policy, func(ctx context.Context) error {
		calls++
		return sentinel
	})

	if !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("error = %v, want ErrBudgetExhausted", err)
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("error %v should wrap the last attempt error", err)
	}
	if calls != 4 {
		t.Errorf("attempts = %d, want 4", calls)
	}
}

func TestRetryHonorsCancellation(t *testing.T) {
	policy := Policy{Base: time.Hour, Cap: time.Hour, Multiplier: 2, MaxAttempts: 3}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Retry(ctx, policy, func(ctx context.Context) error {
			t.Error("attempt should not run before the hour-long backoff")
			return nil
		})
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Retry did not return after cancellation")
	}
}
