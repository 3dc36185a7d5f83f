// Package retry provides a bounded fixed-backoff retry helper for calls that
// are sensitive to read-after-write lag in the store.
package retry

import (
	"context"
	"time"
)

// Do runs fn up to attempts times, sleeping delay between failures. It
// returns nil on the first success and the last error once attempts are
// exhausted. Context cancellation aborts the wait between attempts.
func Do(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
