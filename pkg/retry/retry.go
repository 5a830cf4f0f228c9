// Package retry provides a small bounded-retry helper for flaky upstream
// calls.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Do calls fn up to attempts times, sleeping baseDelay multiplied by the
// attempt number between failures. Returns nil on the first success, the last
// error once attempts are exhausted, or a wrapped ctx error if the context is
// cancelled while waiting.
func Do(ctx context.Context, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		select {
		case <-time.After(baseDelay * time.Duration(attempt)):
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled after attempt %d: %w", attempt, ctx.Err())
		}
	}
	return lastErr
}
