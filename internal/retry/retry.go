// Package retry provides a bounded retry wrapper for idempotent operations.
// Booking submission must never go through it; repeated submits can create
// duplicate reservations.
package retry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Do runs op up to attempts times, sleeping delay between tries. The last
// error is returned once attempts are exhausted. Context cancellation cuts
// the loop short.
func Do(ctx context.Context, attempts int, delay time.Duration, log *zap.Logger, op func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var last error
	for i := 1; i <= attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		last = op()
		if last == nil {
			return nil
		}
		if i < attempts {
			log.Warn("attempt failed, retrying",
				zap.Int("attempt", i),
				zap.Duration("delay", delay),
				zap.Error(last))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	log.Error("all attempts failed", zap.Int("attempts", attempts), zap.Error(last))
	return fmt.Errorf("after %d attempts: %w", attempts, last)
}
