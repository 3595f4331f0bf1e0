package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/predicato/pkg/config"
	"github.com/soundprediction/predicato/pkg/resilience"
)

func TestNewEmbedder_LocalBackend(t *testing.T) {
	cfg := config.ProviderConfig{Backend: "local-inprocess-gpu", Dimension: 8}
	emb, err := NewEmbedder(cfg, config.SchedulerConfig{MaxBatchSize: 4, MaxWaitSeconds: 0.05}, resilience.BreakerConfig{}, nil)
	require.NoError(t, err)

	_, ok := emb.(*Scheduler)
	assert.True(t, ok)
	assert.Equal(t, 8, emb.Dim())
	require.NoError(t, emb.Close())
}

func TestNewEmbedder_JinaMarkerInModelName(t *testing.T) {
	cfg := config.ProviderConfig{Backend: "remote-openai-compatible", Model: "jina-embeddings-v3", Dimension: 1024}
	emb, err := NewEmbedder(cfg, config.SchedulerConfig{}, resilience.BreakerConfig{}, nil)
	require.NoError(t, err)

	retry, ok := emb.(*retryEmbedder)
	require.True(t, ok)
	_, ok = retry.inner.(*JinaEmbedder)
	assert.True(t, ok)
}

func TestNewEmbedder_DefaultsToOpenAICompatible(t *testing.T) {
	cfg := config.ProviderConfig{Backend: "remote-openai-compatible", Model: "text-embedding-3-small", Dimension: 1536}
	emb, err := NewEmbedder(cfg, config.SchedulerConfig{}, resilience.BreakerConfig{}, nil)
	require.NoError(t, err)

	retry, ok := emb.(*retryEmbedder)
	require.True(t, ok)
	_, ok = retry.inner.(*OpenAICompatibleEmbedder)
	assert.True(t, ok)
}

func TestNewEmbedder_LegacyLocalGPUConfig(t *testing.T) {
	cfg := config.ProviderConfig{LegacyProvider: "local", LegacyDevice: "cuda:0", Dimension: 8}
	emb, err := NewEmbedder(cfg, config.SchedulerConfig{MaxBatchSize: 4, MaxWaitSeconds: 0.05}, resilience.BreakerConfig{}, nil)
	require.NoError(t, err)

	_, ok := emb.(*Scheduler)
	assert.True(t, ok)
	require.NoError(t, emb.Close())
}

func TestNewEmbedder_BreakerWrapsWhenEnabled(t *testing.T) {
	cfg := config.ProviderConfig{Backend: "remote-openai-compatible", Model: "text-embedding-3-small", Dimension: 1536}
	breakerCfg := resilience.BreakerConfig{Enabled: true, MaxRequests: 1, ReadyToTripRatio: 0.5}
	emb, err := NewEmbedder(cfg, config.SchedulerConfig{}, breakerCfg, nil)
	require.NoError(t, err)

	_, ok := emb.(*breakerEmbedder)
	assert.True(t, ok)
}
