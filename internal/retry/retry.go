// Package retry re-runs short idempotent operations after transient
// failures.
package retry

import (
	"context"
	"fmt"
	"time"

	"hnbabel/internal/logger"
)

// Config bounds one retried operation. Backoff grows the sleep by Delay
// after every failed attempt; without it the gap stays constant.
type Config struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     bool
}

// Do runs fn until it succeeds, the attempts are exhausted, or the
// context is done. A context already cancelled on entry means fn is
// never called.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	delay := cfg.Delay
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		if attempt == attempts {
			return fmt.Errorf("failed after %d attempts: %w", attempts, err)
		}

		logger.Debug("retrying after failure", "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if cfg.Backoff {
			delay += cfg.Delay
		}
	}
}
