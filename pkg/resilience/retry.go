// Package resilience provides the exponential-backoff retry and
// circuit-breaking decorators shared by every remote model-provider adapter
// (LLM, vision, embedding, reranker). A single engine here keeps the three
// provider packages (nlp, embedder, crossencoder) from each reimplementing
// the same backoff math.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/soundprediction/predicato/pkg/errs"
)

// RetryConfig holds configuration for retry behavior.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (default: 3).
	MaxRetries int
	// InitialDelay is the delay before the first retry (default: 1 second).
	InitialDelay time.Duration
	// MaxDelay caps the backoff delay (default: 60 seconds).
	MaxDelay time.Duration
	// BackoffMultiplier multiplies the delay each attempt (default: 2.0).
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialDelay:      1 * time.Second,
		MaxDelay:          60 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

func (c *RetryConfig) withDefaults() *RetryConfig {
	if c == nil {
		return DefaultRetryConfig()
	}
	cfg := *c
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 1 * time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 60 * time.Second
	}
	if cfg.BackoffMultiplier <= 0 {
		cfg.BackoffMultiplier = 2.0
	}
	return &cfg
}

func calculateDelay(cfg *RetryConfig, attempt int) time.Duration {
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.BackoffMultiplier, float64(attempt-1))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}

// Do runs fn, retrying with exponential backoff while the error it returns
// is classified retryable. It respects ctx cancellation during the backoff
// sleep. 4xx-class errors (IsRetryable returns false) fail immediately.
func Do(ctx context.Context, cfg *RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := calculateDelay(cfg, attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during retry backoff: %w", ctx.Err())
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
	}

	return fmt.Errorf("failed after %d retries: %w", cfg.MaxRetries, lastErr)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// IsRetryable classifies an error as transient (5xx, timeout, connection
// reset/refused, rate limit) versus fatal (4xx, anything else).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var remoteErr *errs.RemoteAPIError
	if errors.As(err, &remoteErr) {
		return remoteErr.Retryable
	}

	var httpErr httpStatusCoder
	if errors.As(err, &httpErr) {
		code := httpErr.HTTPStatusCode()
		if code >= 500 || code == http.StatusTooManyRequests {
			return true
		}
		if code >= 400 {
			return false
		}
	}

	msg := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"500", "internal server error",
		"502", "bad gateway",
		"503", "service unavailable",
		"504", "gateway timeout",
		"timeout",
		"connection reset",
		"connection refused",
		"temporary failure",
		"rate limit",
		"too many requests",
		"429",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
