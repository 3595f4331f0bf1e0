package rag

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/soundprediction/predicato/pkg/alert"
	"github.com/soundprediction/predicato/pkg/config"
	"github.com/soundprediction/predicato/pkg/crossencoder"
	"github.com/soundprediction/predicato/pkg/embedder"
	"github.com/soundprediction/predicato/pkg/errs"
	"github.com/soundprediction/predicato/pkg/nlp"
	"github.com/soundprediction/predicato/pkg/resilience"
)

// Service is the RAG Service Facade: the single entry point the HTTP
// surface and the Background Indexer call into. It owns exactly one lazily
// constructed Retriever, built on first use while one mutex is held across
// the check and the build, so that concurrent callers racing to process the first document don't each
// build their own provider set.
type Service struct {
	cfg     config.Config
	alerter alert.Alerter

	mu        sync.Mutex
	retriever Retriever
	initErr   error
}

// NewServiceWithRetriever builds a facade around an already-constructed
// retriever, skipping provider wiring entirely. Exported so tests in other
// packages (notably the HTTP handlers) can exercise a Service without live
// provider credentials.
func NewServiceWithRetriever(cfg config.Config, alerter alert.Alerter, r Retriever) *Service {
	if alerter == nil {
		alerter = &alert.NoOpAlerter{}
	}
	return &Service{cfg: cfg, alerter: alerter, retriever: r}
}

// NewService builds a facade over cfg. No provider is constructed until the
// first call that needs one.
func NewService(cfg config.Config, alerter alert.Alerter) *Service {
	if alerter == nil {
		alerter = &alert.NoOpAlerter{}
	}
	return &Service{cfg: cfg, alerter: alerter}
}

func breakerConfig(c config.CircuitBreakerConfig) resilience.BreakerConfig {
	return resilience.BreakerConfig{
		Enabled:          c.Enabled,
		MaxRequests:      c.MaxRequests,
		Interval:         secondsToDuration(c.IntervalSeconds),
		Timeout:          secondsToDuration(c.TimeoutSeconds),
		ReadyToTripRatio: c.ReadyToTripRatio,
	}
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

// getOrInit returns the lazily built retriever, constructing it on the
// first call. A construction failure is cached and returned to every
// subsequent caller rather than retried silently on every request.
func (s *Service) getOrInit(ctx context.Context) (Retriever, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retriever != nil {
		return s.retriever, nil
	}
	if s.initErr != nil {
		return nil, s.initErr
	}

	r, err := s.buildRetriever()
	if err != nil {
		s.initErr = err
		return nil, err
	}
	s.retriever = r
	return r, nil
}

func (s *Service) buildRetriever() (Retriever, error) {
	breakerCfg := breakerConfig(s.cfg.CircuitBreaker)

	emb, err := embedder.NewEmbedder(s.cfg.Providers.Embedding, s.cfg.Providers.Scheduler, breakerCfg, s.alerter)
	if err != nil {
		return nil, fmt.Errorf("build embedding provider: %w", err)
	}

	llm, err := nlp.NewLLMCompleter(s.cfg.Providers.LLM, breakerCfg, s.alerter)
	if err != nil {
		return nil, fmt.Errorf("build LLM provider: %w", err)
	}

	var reranker nlp.Reranker
	if s.cfg.Providers.Reranker != nil && s.cfg.Providers.Reranker.Enabled {
		reranker, err = crossencoder.NewReranker(*s.cfg.Providers.Reranker, breakerCfg, s.alerter)
		if err != nil {
			return nil, fmt.Errorf("build reranker provider: %w", err)
		}
	}

	var vision nlp.VisionCompleter
	if s.cfg.Providers.Vision != nil && s.cfg.Providers.Vision.Enabled {
		vision, err = nlp.NewVisionCompleter(*s.cfg.Providers.Vision)
		if err != nil {
			return nil, fmt.Errorf("build vision provider: %w", err)
		}
	}

	return NewInProcessRetriever(s.cfg.Storage.WorkingDir, emb, reranker, llm, vision), nil
}

// ProcessDocument satisfies pkg/indexer.DocumentProcessor, so the facade can
// be handed directly to the Background Indexer.
func (s *Service) ProcessDocument(ctx context.Context, filePath string) error {
	r, err := s.getOrInit(ctx)
	if err != nil {
		return err
	}
	return r.ProcessDocument(ctx, filePath, s.cfg.Storage.WorkingDir, "auto")
}

// Query answers a text-only query.
func (s *Service) Query(ctx context.Context, query, mode string, opts QueryOptions) (string, error) {
	r, err := s.getOrInit(ctx)
	if err != nil {
		return "", err
	}
	resp, err := r.Query(ctx, query, mode, opts)
	if err != nil {
		return "", err
	}
	return resp, nil
}

// QueryWithMultimodal answers a query that attaches images, tables, or
// equations alongside the question text.
func (s *Service) QueryWithMultimodal(ctx context.Context, query string, items []MultimodalItem, mode string, opts QueryOptions) (string, error) {
	r, err := s.getOrInit(ctx)
	if err != nil {
		return "", err
	}
	resp, err := r.QueryWithMultimodal(ctx, query, items, mode, opts)
	if err != nil {
		return "", err
	}
	return resp, nil
}

// Status reports whether the retriever has been initialized yet, for the
// health/readiness endpoints.
func (s *Service) Status() (initialized bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retriever != nil, s.initErr
}

// Shutdown releases every provider the facade constructed. Calling it
// before the retriever was ever built is a no-op.
func (s *Service) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retriever == nil {
		return nil
	}
	err := s.retriever.Close()
	s.retriever = nil
	if err != nil {
		return errs.NewInternalError("shut down retriever", err)
	}
	return nil
}
