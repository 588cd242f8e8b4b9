package webclient

import (
	"context"
	"time"
)

type AttemptFunc func() (status int, body []byte, err error)

// DoWithRetry retries the attempt function on transient errors (429/5xx) or
// transport errors. attempts <= 1 means a single call with no retry.
func DoWithRetry(ctx context.Context, attempts int, initialDelay time.Duration, fn AttemptFunc) (int, []byte, error) {
	if attempts <= 0 {
		attempts = 1
	}
	if initialDelay <= 0 {
		initialDelay = 2 * time.Second
	}
	delay := initialDelay
	for i := 0; ; i++ {
		status, body, err := fn()
		if err == nil || !retryable(status) || i == attempts-1 {
			return status, body, err
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return status, body, ctx.Err()
		case <-t.C:
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
}

// retryable reports whether a failed attempt with this status is worth
// repeating. Status 0 means the request never got a response.
func retryable(status int) bool {
	return status == 0 || status == 429 || status >= 500
}
