package utils

import (
	"context"
	"fmt"
	"time"

	"medical-alert-service/internal/logging"
)

// Retry calls fn until it succeeds, maxAttempts is reached, or ctx is done.
// The delay doubles after every failed attempt.
func Retry(ctx context.Context, logger *logging.Logger, maxAttempts int, delay time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := fn(); err != nil {
			lastErr = err
			logger.Warnf("Attempt %d/%d failed: %v", attempt, maxAttempts, err)
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return fmt.Errorf("gave up after %d attempts: %w", attempt, ctx.Err())
				case <-time.After(delay):
				}
				delay *= 2
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
}
