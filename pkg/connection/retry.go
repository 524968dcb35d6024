package connection

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrBudgetExhausted indicates all reconnection attempts failed.
var ErrBudgetExhausted = errors.New("reconnection budget exhausted")

// AttemptFunc performs one reconnection attempt.
type AttemptFunc func(ctx context.Context) error

// Retry drives fn through the policy's bounded attempt loop, sleeping
// the backoff delay before each attempt. It returns nil as soon as an
// attempt succeeds, ctx.Err() if the context is canceled during a
// backoff wait, and ErrBudgetExhausted (wrapping the last attempt
// error) once the budget is spent.
//
// The delay comes before the attempt: a connection that just failed is
// very unlikely to accept an immediate redial.
func Retry(ctx context.Context, policy Policy, fn AttemptFunc) error {
	b := NewBackoff(policy)

	var lastErr error
	for !b.Exhausted() {
		delay := b.Next()

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err := fn(ctx); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrBudgetExhausted, b.Attempts(), lastErr)
}
