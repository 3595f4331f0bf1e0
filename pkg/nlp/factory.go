package nlp

import (
	"fmt"

	"github.com/soundprediction/predicato/pkg/alert"
	"github.com/soundprediction/predicato/pkg/config"
	"github.com/soundprediction/predicato/pkg/resilience"
)

// NewLLMCompleter builds an LLMCompleter from a provider config, decorated
// with retry and, if enabled, a circuit breaker. remote-anthropic dispatches
// to the Anthropic Messages API; every other backend falls back to the
// OpenAI-compatible REST adapter.
func NewLLMCompleter(cfg config.ProviderConfig, breakerCfg resilience.BreakerConfig, alerter alert.Alerter) (LLMCompleter, error) {
	var base LLMCompleter
	switch cfg.Backend {
	case "remote-anthropic":
		base = NewAnthropicClient(cfg.APIKey, cfg.Model, cfg.BaseURL)
	default:
		base = NewOpenAICompatibleClient(cfg.APIKey, cfg.Model, cfg.BaseURL)
	}

	retryCfg := resilience.DefaultRetryConfig()
	decorated := NewRetryLLMCompleter(base, retryCfg)

	if breakerCfg.Enabled {
		cb := resilience.NewBreaker(fmt.Sprintf("llm:%s:%s", cfg.Backend, cfg.Model), breakerCfg, alerter)
		decorated = NewCircuitBreakerLLMCompleter(decorated, cb)
	}
	return decorated, nil
}

// NewVisionCompleter builds a VisionCompleter from a provider config. Only
// the OpenAI-compatible adapter supports images in this build; Anthropic's
// vision shape is not wired since no documented component routes a vision
// request to it.
func NewVisionCompleter(cfg config.ProviderConfig) (VisionCompleter, error) {
	base := NewOpenAICompatibleClient(cfg.APIKey, cfg.Model, cfg.BaseURL)
	retryCfg := resilience.DefaultRetryConfig()
	return NewRetryVisionCompleter(base, retryCfg), nil
}
