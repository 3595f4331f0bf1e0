package nlp

import (
	"context"

	"github.com/sony/gobreaker"

	"github.com/soundprediction/predicato/pkg/resilience"
)

// retryLLM wraps an LLMCompleter with the shared retry engine.
type retryLLM struct {
	inner LLMCompleter
	cfg   *resilience.RetryConfig
}

// NewRetryLLMCompleter decorates inner with exponential-backoff retry.
func NewRetryLLMCompleter(inner LLMCompleter, cfg *resilience.RetryConfig) LLMCompleter {
	return &retryLLM{inner: inner, cfg: cfg}
}

func (r *retryLLM) Complete(ctx context.Context, prompt, system string, history []Message, opts CompleteOptions) (string, error) {
	var out string
	err := resilience.Do(ctx, r.cfg, func() error {
		var innerErr error
		out, innerErr = r.inner.Complete(ctx, prompt, system, history, opts)
		return innerErr
	})
	return out, err
}

func (r *retryLLM) CompleteStream(ctx context.Context, prompt, system string, history []Message, opts CompleteOptions) (<-chan string, error) {
	// Streaming responses can't be transparently retried mid-stream once
	// the first delta has been sent; retry only applies to establishing
	// the stream.
	var ch <-chan string
	err := resilience.Do(ctx, r.cfg, func() error {
		var innerErr error
		ch, innerErr = r.inner.CompleteStream(ctx, prompt, system, history, opts)
		return innerErr
	})
	return ch, err
}

func (r *retryLLM) Close() error { return r.inner.Close() }

// breakerLLM wraps an LLMCompleter with a circuit breaker.
type breakerLLM struct {
	inner LLMCompleter
	cb    *gobreaker.CircuitBreaker
}

// NewCircuitBreakerLLMCompleter decorates inner with a circuit breaker.
func NewCircuitBreakerLLMCompleter(inner LLMCompleter, cb *gobreaker.CircuitBreaker) LLMCompleter {
	return &breakerLLM{inner: inner, cb: cb}
}

func (b *breakerLLM) Complete(ctx context.Context, prompt, system string, history []Message, opts CompleteOptions) (string, error) {
	return resilience.Execute(b.cb, func() (string, error) {
		return b.inner.Complete(ctx, prompt, system, history, opts)
	})
}

func (b *breakerLLM) CompleteStream(ctx context.Context, prompt, system string, history []Message, opts CompleteOptions) (<-chan string, error) {
	return resilience.Execute(b.cb, func() (<-chan string, error) {
		return b.inner.CompleteStream(ctx, prompt, system, history, opts)
	})
}

func (b *breakerLLM) Close() error { return b.inner.Close() }

// retryVision wraps a VisionCompleter with the shared retry engine.
type retryVision struct {
	inner VisionCompleter
	cfg   *resilience.RetryConfig
}

func NewRetryVisionCompleter(inner VisionCompleter, cfg *resilience.RetryConfig) VisionCompleter {
	return &retryVision{inner: inner, cfg: cfg}
}

func (r *retryVision) CompleteWithImages(ctx context.Context, prompt string, images [][]byte, system string, opts CompleteOptions) (string, error) {
	var out string
	err := resilience.Do(ctx, r.cfg, func() error {
		var innerErr error
		out, innerErr = r.inner.CompleteWithImages(ctx, prompt, images, system, opts)
		return innerErr
	})
	return out, err
}

func (r *retryVision) Close() error { return r.inner.Close() }
