package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/predicato/pkg/config"
	"github.com/soundprediction/predicato/pkg/resilience"
)

func TestNewLLMCompleter_DefaultsToOpenAICompatible(t *testing.T) {
	cfg := config.ProviderConfig{Backend: "remote-openai-compatible", Model: "gpt-4o-mini"}
	completer, err := NewLLMCompleter(cfg, resilience.BreakerConfig{}, nil)
	require.NoError(t, err)
	require.NotNil(t, completer)

	retry, ok := completer.(*retryLLM)
	require.True(t, ok, "expected retry decorator at top of stack when breaker disabled")
	_, ok = retry.inner.(*OpenAICompatibleClient)
	assert.True(t, ok)
}

func TestNewLLMCompleter_AnthropicBackend(t *testing.T) {
	cfg := config.ProviderConfig{Backend: "remote-anthropic", Model: "claude-3-5-sonnet"}
	completer, err := NewLLMCompleter(cfg, resilience.BreakerConfig{}, nil)
	require.NoError(t, err)

	retry, ok := completer.(*retryLLM)
	require.True(t, ok)
	_, ok = retry.inner.(*AnthropicClient)
	assert.True(t, ok)
}

func TestNewLLMCompleter_WrapsBreakerWhenEnabled(t *testing.T) {
	cfg := config.ProviderConfig{Backend: "remote-openai-compatible", Model: "gpt-4o-mini"}
	breakerCfg := resilience.BreakerConfig{Enabled: true, MaxRequests: 1, ReadyToTripRatio: 0.5}
	completer, err := NewLLMCompleter(cfg, breakerCfg, nil)
	require.NoError(t, err)

	_, ok := completer.(*breakerLLM)
	assert.True(t, ok, "expected circuit breaker decorator at top of stack")
}

func TestNewVisionCompleter(t *testing.T) {
	cfg := config.ProviderConfig{Backend: "remote-openai-compatible", Model: "gpt-4o"}
	completer, err := NewVisionCompleter(cfg)
	require.NoError(t, err)
	require.NotNil(t, completer)

	retry, ok := completer.(*retryVision)
	require.True(t, ok)
	_, ok = retry.inner.(*OpenAICompatibleClient)
	assert.True(t, ok)
}
