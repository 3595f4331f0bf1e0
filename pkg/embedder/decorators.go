package embedder

import (
	"context"

	"github.com/sony/gobreaker"

	"github.com/soundprediction/predicato/pkg/nlp"
	"github.com/soundprediction/predicato/pkg/resilience"
)

// retryEmbedder wraps an nlp.Embedder with the shared retry engine.
type retryEmbedder struct {
	inner nlp.Embedder
	cfg   *resilience.RetryConfig
}

func newRetryEmbedder(inner nlp.Embedder, cfg *resilience.RetryConfig) nlp.Embedder {
	return &retryEmbedder{inner: inner, cfg: cfg}
}

func (r *retryEmbedder) Embed(ctx context.Context, texts []string, opts ...nlp.EmbedOption) ([][]float32, error) {
	var out [][]float32
	err := resilience.Do(ctx, r.cfg, func() error {
		var innerErr error
		out, innerErr = r.inner.Embed(ctx, texts, opts...)
		return innerErr
	})
	return out, err
}

func (r *retryEmbedder) Dim() int     { return r.inner.Dim() }
func (r *retryEmbedder) Close() error { return r.inner.Close() }

// breakerEmbedder wraps an nlp.Embedder with a circuit breaker.
type breakerEmbedder struct {
	inner nlp.Embedder
	cb    *gobreaker.CircuitBreaker
}

func newBreakerEmbedder(inner nlp.Embedder, cb *gobreaker.CircuitBreaker) nlp.Embedder {
	return &breakerEmbedder{inner: inner, cb: cb}
}

func (b *breakerEmbedder) Embed(ctx context.Context, texts []string, opts ...nlp.EmbedOption) ([][]float32, error) {
	return resilience.Execute(b.cb, func() ([][]float32, error) {
		return b.inner.Embed(ctx, texts, opts...)
	})
}

func (b *breakerEmbedder) Dim() int     { return b.inner.Dim() }
func (b *breakerEmbedder) Close() error { return b.inner.Close() }
