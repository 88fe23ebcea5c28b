package adapter

import (
	"context"
	"fmt"
	"time"
)

// baseBackoff is the pause before the first redelivery. Each later pause
// doubles it.
const baseBackoff = 500 * time.Millisecond

// Backoff returns the pause before redelivery n, counting from 1.
func Backoff(n int) time.Duration {
	if n < 1 {
		return 0
	}
	return baseBackoff << uint(n-1)
}

// Deliver hands an encoded outcome event to send, redelivering up to
// retries times after a failure. A failure for which permanent reports true
// ends delivery at once. permanent may be nil.
func Deliver(ctx context.Context, retries int, send func(context.Context) error, permanent func(error) bool) error {
	var lastErr error
	for n := 0; n <= retries; n++ {
		if n > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("delivery canceled after %d tries: %w", n, ctx.Err())
			case <-time.After(Backoff(n)):
			}
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("delivery canceled: %w", err)
		}

		lastErr = send(ctx)
		if lastErr == nil {
			return nil
		}
		if permanent != nil && permanent(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("gave up after %d tries: %w", retries+1, lastErr)
}
