package crossencoder

import (
	"fmt"
	"strings"

	"github.com/soundprediction/predicato/pkg/alert"
	"github.com/soundprediction/predicato/pkg/config"
	"github.com/soundprediction/predicato/pkg/nlp"
	"github.com/soundprediction/predicato/pkg/resilience"
)

// NewReranker selects a concrete nlp.Reranker from a provider config per the
// Reranker selection: local-GPU with a CUDA device hint, local
// CPU, or a remote adapter whose wire shape is detected from base-url/
// model-name. Remote adapters are wrapped with retry and, if enabled, a
// circuit breaker.
func NewReranker(cfg config.ProviderConfig, breakerCfg resilience.BreakerConfig, alerter alert.Alerter) (nlp.Reranker, error) {
	if cfg.Backend == "local-inprocess-gpu" {
		if isCUDADevice(cfg.LegacyDevice) {
			return NewLocalGPURerankerClient(cfg.LegacyDevice), nil
		}
		return NewLocalCPURerankerClient(), nil
	}

	base := NewRemoteReranker(cfg.APIKey, cfg.Model, cfg.BaseURL)

	retryCfg := resilience.DefaultRetryConfig()
	decorated := newRetryReranker(base, retryCfg)

	if breakerCfg.Enabled {
		cb := resilience.NewBreaker(fmt.Sprintf("reranker:%s:%s", base.provider, cfg.Model), breakerCfg, alerter)
		decorated = newBreakerReranker(decorated, cb)
	}
	return decorated, nil
}

func isCUDADevice(device string) bool {
	return strings.HasPrefix(strings.ToLower(device), "cuda")
}
