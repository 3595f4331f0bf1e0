package crossencoder

import (
	"context"

	"github.com/sony/gobreaker"

	"github.com/soundprediction/predicato/pkg/nlp"
	"github.com/soundprediction/predicato/pkg/resilience"
)

// retryReranker wraps an nlp.Reranker with the shared retry engine.
type retryReranker struct {
	inner nlp.Reranker
	cfg   *resilience.RetryConfig
}

func newRetryReranker(inner nlp.Reranker, cfg *resilience.RetryConfig) nlp.Reranker {
	return &retryReranker{inner: inner, cfg: cfg}
}

func (r *retryReranker) Rerank(ctx context.Context, query string, docs []string) ([]float64, error) {
	var out []float64
	err := resilience.Do(ctx, r.cfg, func() error {
		var innerErr error
		out, innerErr = r.inner.Rerank(ctx, query, docs)
		return innerErr
	})
	return out, err
}

func (r *retryReranker) Close() error { return r.inner.Close() }

// breakerReranker wraps an nlp.Reranker with a circuit breaker.
type breakerReranker struct {
	inner nlp.Reranker
	cb    *gobreaker.CircuitBreaker
}

func newBreakerReranker(inner nlp.Reranker, cb *gobreaker.CircuitBreaker) nlp.Reranker {
	return &breakerReranker{inner: inner, cb: cb}
}

func (b *breakerReranker) Rerank(ctx context.Context, query string, docs []string) ([]float64, error) {
	return resilience.Execute(b.cb, func() ([]float64, error) {
		return b.inner.Rerank(ctx, query, docs)
	})
}

func (b *breakerReranker) Close() error { return b.inner.Close() }
