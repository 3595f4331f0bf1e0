package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/predicato/pkg/catalog"
	"github.com/soundprediction/predicato/pkg/config"
	"github.com/soundprediction/predicato/pkg/rag"
)

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	return cat
}

func TestHealthHandler_HealthCheck(t *testing.T) {
	h := NewHealthHandler(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	h.HealthCheck(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestHealthHandler_LivenessCheck(t *testing.T) {
	h := NewHealthHandler(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	rec := httptest.NewRecorder()

	h.LivenessCheck(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthHandler_ReadinessCheck_UninitializedDependenciesAreUnhealthy(t *testing.T) {
	h := NewHealthHandler(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()

	h.ReadinessCheck(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body["status"])
}

func TestHealthHandler_ReadinessCheck_HealthyWhenDependenciesRespond(t *testing.T) {
	cat := newTestCatalog(t)
	svc := rag.NewServiceWithRetriever(config.Config{}, nil, rag.NewInProcessRetriever(t.TempDir(), &fakeEmbedder{}, nil, &fakeLLM{}, nil))
	h := NewHealthHandler(cat, svc)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()

	h.ReadinessCheck(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestHealthHandler_DetailedHealthCheck_ReportsTrackedFileCount(t *testing.T) {
	cat := newTestCatalog(t)
	require.NoError(t, cat.Upsert(newCtx(t), catalog.IndexStatus{FilePath: "a.pdf", FileHash: "h", Status: catalog.StatusIndexed}))

	svc := rag.NewServiceWithRetriever(config.Config{}, nil, rag.NewInProcessRetriever(t.TempDir(), &fakeEmbedder{}, nil, &fakeLLM{}, nil))
	h := NewHealthHandler(cat, svc)

	req := httptest.NewRequest(http.MethodGet, "/health/detailed", nil)
	rec := httptest.NewRecorder()

	h.DetailedHealthCheck(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	checks := body["checks"].(map[string]interface{})
	catalogCheck := checks["catalog"].(map[string]interface{})
	assert.EqualValues(t, 1, catalogCheck["tracked_files"])
}
