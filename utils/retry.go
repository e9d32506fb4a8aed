package utils

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig holds the parameters for the retry strategy.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Exponential doubles the delay after every failed attempt; otherwise the
	// delay stays fixed at BaseDelay.
	Exponential bool
	Logger      *Logger
	// OnAttempt, if set, is called after every attempt with its outcome.
	OnAttempt func(attempt int, err error)
}

// Do executes fn until it succeeds, MaxAttempts is reached or ctx is cancelled.
// fn receives the 1-based attempt number.
func (r *RetryConfig) Do(ctx context.Context, operationName string, fn func(attempt int) error) error {
	maxAttempts := r.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	delay := r.BaseDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = fn(attempt)
		if r.OnAttempt != nil {
			r.OnAttempt(attempt, lastErr)
		}
		if lastErr == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		if r.Logger != nil {
			r.Logger.Warn("[retry] %s failed (attempt %d/%d): %v, retrying in %v",
				operationName, attempt, maxAttempts, lastErr, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s cancelled after %d attempts: %w", operationName, attempt, ctx.Err())
		case <-timer.C:
		}

		if r.Exponential {
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxAttempts, lastErr)
}
