package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/predicato/pkg/config"
)

func TestConfigHandler_Current_RedactsCredentials(t *testing.T) {
	cfg := &config.Config{
		Providers: config.ProvidersConfig{
			LLM: config.ProviderConfig{APIKey: "super-secret", Model: "gpt-test"},
		},
	}
	h := NewConfigHandler(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	rec := httptest.NewRecorder()

	h.Current(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	raw := rec.Body.String()
	assert.NotContains(t, raw, "super-secret")
}
