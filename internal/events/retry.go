package events

import (
	"context"
	"time"
)

// retryPublish runs publish up to attempts times with linear backoff
// between attempts (attempt x backoff). The last error wins.
func retryPublish(ctx context.Context, attempts int, backoff time.Duration, publish func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := publish(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(time.Duration(attempt) * backoff):
		}
	}
	return lastErr
}
