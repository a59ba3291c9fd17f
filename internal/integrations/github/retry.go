// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-02-15
// Last Modified: 2026-10-14

package github

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/go-github/v60/github"
)

// RetryConfig holds configuration for exponential backoff retry.
type RetryConfig struct {
	MaxRetries  int           // Maximum number of retry attempts (default: 3)
	BaseDelay   time.Duration // Initial delay before first retry (default: 1s)
	MaxDelay    time.Duration // Maximum delay cap (default: 30s)
	JitterRatio float64       // Jitter as fraction of delay, 0.0-1.0 (default: 0.25)
}

// DefaultRetryConfig returns the defaults for GitHub API retries.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
		JitterRatio: 0.25,
	}
}

// isRetryableError reports whether err is a transient GitHub API error:
// primary or secondary rate limiting, or a 5xx response.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		code := respErr.Response.StatusCode
		return code == http.StatusTooManyRequests || (code >= 500 && code < 600)
	}

	return false
}

// delay returns the wait before retry n (0-based): BaseDelay doubled per
// retry plus jitter, unless GitHub named its own wait. Both are capped by
// MaxDelay.
func (cfg RetryConfig) delay(n int, err error) time.Duration {
	d := cfg.BaseDelay << n
	if cfg.JitterRatio > 0 && d > 0 {
		d += time.Duration(rand.Int63n(int64(float64(d)*cfg.JitterRatio) + 1))
	}

	var abuseErr *github.AbuseRateLimitError
	var rateErr *github.RateLimitError
	switch {
	case errors.As(err, &abuseErr) && abuseErr.RetryAfter != nil:
		d = *abuseErr.RetryAfter
	case errors.As(err, &rateErr) && !rateErr.Rate.Reset.IsZero():
		d = time.Until(rateErr.Rate.Reset.Time)
	}

	return max(min(d, cfg.MaxDelay), 0)
}

// withRetry calls fn until it succeeds, fails permanently, or MaxRetries
// retries are spent. Only idempotent calls may be wrapped.
func withRetry[T any](ctx context.Context, cfg RetryConfig, operation string, fn func() (T, error)) (T, error) {
	var zero T
	for n := 0; ; n++ {
		result, err := fn()
		switch {
		case err == nil:
			return result, nil
		case !isRetryableError(err):
			return zero, err
		case n >= cfg.MaxRetries:
			return zero, fmt.Errorf("%s failed after %d retries: %w", operation, cfg.MaxRetries, err)
		}

		timer := time.NewTimer(cfg.delay(n, err))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("%s: context cancelled during retry: %w", operation, ctx.Err())
		case <-timer.C:
		}
	}
}
