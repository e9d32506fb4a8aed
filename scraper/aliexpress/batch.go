package aliexpress

import (
	"context"
	"fmt"
	"strings"

	"ali-crawler/utils"
)

// Policy decides what a batch does when one of its items fails.
type Policy string

const (
	// PolicyAbort stops the batch at the first failing item.
	PolicyAbort Policy = "abort"
	// PolicySkip logs failing items and keeps the successful ones.
	PolicySkip Policy = "skip"
)

// ParsePolicy converts a configuration value into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyAbort, PolicySkip:
		return Policy(s), nil
	case "":
		return PolicyAbort, nil
	}
	return "", fmt.Errorf("unknown item failure policy %q", s)
}

// ItemError records the failure of one product URL.
type ItemError struct {
	URL string
	Err error
}

// BatchError summarises the failed items of a batch.
type BatchError struct {
	Total  int
	Failed []ItemError
}

func (e *BatchError) Error() string {
	urls := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		urls = append(urls, f.URL)
	}
	return fmt.Sprintf("%d of %d items failed: %s", len(e.Failed), e.Total, strings.Join(urls, ", "))
}

// Unwrap exposes the individual item errors to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, f := range e.Failed {
		errs = append(errs, f.Err)
	}
	return errs
}

// forEach calls fetch for every URL in order. Under PolicyAbort the first
// error is returned. Under PolicySkip failures are collected; the batch only
// fails when no item succeeded. Context cancellation always aborts.
func forEach[T any](ctx context.Context, policy Policy, logger *utils.Logger, component string,
	urls []string, fetch func(ctx context.Context, url string) (T, error)) ([]T, error) {

	out := make([]T, 0, len(urls))
	batchErr := &BatchError{Total: len(urls)}

	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		item, err := fetch(ctx, u)
		if err != nil {
			if policy != PolicySkip || ctx.Err() != nil {
				return nil, fmt.Errorf("item %d (%s): %w", i+1, u, err)
			}
			logger.Warn("[%s] Skipping %s: %v", component, u, err)
			batchErr.Failed = append(batchErr.Failed, ItemError{URL: u, Err: err})
			continue
		}
		out = append(out, item)
	}

	if len(batchErr.Failed) > 0 {
		if len(out) == 0 {
			return nil, batchErr
		}
		logger.Warn("[%s] Partial batch: %v", component, batchErr)
	}
	return out, nil
}
