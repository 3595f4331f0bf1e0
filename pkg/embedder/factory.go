package embedder

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/soundprediction/predicato/pkg/alert"
	"github.com/soundprediction/predicato/pkg/config"
	"github.com/soundprediction/predicato/pkg/nlp"
	"github.com/soundprediction/predicato/pkg/resilience"
)

// NewEmbedder selects a concrete nlp.Embedder from a provider config per the
// local-GPU / Jina-marker / default-OpenAI-compatible selection rules, then
// wraps remote adapters with retry and, if enabled, a circuit breaker. The
// local scheduler path is not decorated: it is already resilient to bursty
// callers by construction and has no remote failure mode to retry around.
func NewEmbedder(cfg config.ProviderConfig, schedCfg config.SchedulerConfig, breakerCfg resilience.BreakerConfig, alerter alert.Alerter) (nlp.Embedder, error) {
	if cfg.Backend == "local-inprocess-gpu" || isLegacyLocalGPU(cfg) {
		sc := SchedulerConfig{
			MaxBatchSize:    schedCfg.MaxBatchSize,
			MaxWaitTime:     time.Duration(schedCfg.MaxWaitSeconds * float64(time.Second)),
			MaxBatchTokens:  schedCfg.MaxBatchTokens,
			EncodeBatchSize: schedCfg.EncodeBatchSize,
		}
		return NewLocalScheduledEmbedder(cfg.Dimension, sc), nil
	}

	var base nlp.Embedder
	if isJina(cfg) {
		base = NewJinaEmbedder(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Dimension)
	} else {
		base = NewOpenAICompatibleEmbedder(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Dimension)
	}

	retryCfg := resilience.DefaultRetryConfig()
	decorated := newRetryEmbedder(base, retryCfg)

	if breakerCfg.Enabled {
		cb := resilience.NewBreaker(fmt.Sprintf("embedding:%s:%s", cfg.Backend, cfg.Model), breakerCfg, alerter)
		decorated = newBreakerEmbedder(decorated, cb)
	}
	return decorated, nil
}

func isJina(cfg config.ProviderConfig) bool {
	if cfg.Backend == "remote-jina" {
		return true
	}
	return strings.Contains(strings.ToLower(cfg.Model), "jina") ||
		strings.Contains(strings.ToLower(cfg.BaseURL), "jina")
}

// isLegacyLocalGPU accepts the deprecated provider="local" + CUDA device
// string configuration, logging a migration warning rather than failing.
func isLegacyLocalGPU(cfg config.ProviderConfig) bool {
	if cfg.Backend != "" {
		return false
	}
	if cfg.LegacyProvider != "local" {
		return false
	}
	if cfg.BaseURL != "" {
		return false
	}
	if !strings.HasPrefix(strings.ToLower(cfg.LegacyDevice), "cuda") {
		return false
	}
	slog.Warn("legacy local-GPU provider configuration detected, migrate to backend=local-inprocess-gpu",
		"provider", cfg.LegacyProvider, "device", cfg.LegacyDevice)
	return true
}
