package refresh

import (
	"context"
	"errors"
	"time"
)

const defaultBackoff = 100 * time.Millisecond

// withRetry runs fn until it succeeds, the retry budget is spent or ctx ends.
// The delay doubles after every failed attempt. Closing stop ends a pending
// wait with errSuperseded; an attempt already running is not interrupted.
func withRetry(ctx context.Context, stop <-chan struct{}, maxRetries int, backoff time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	delay := backoff
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries || !retryable(err) {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-stop:
			timer.Stop()
			return errSuperseded
		case <-timer.C:
		}
		delay *= 2
	}
}

func retryable(err error) bool {
	return !errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}
