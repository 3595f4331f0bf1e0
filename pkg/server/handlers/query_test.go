package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/predicato/pkg/config"
	"github.com/soundprediction/predicato/pkg/rag"
	"github.com/soundprediction/predicato/pkg/server/dto"
)

func newTestQueryHandler(t *testing.T) (*QueryHandler, string) {
	t.Helper()
	uploadDir := t.TempDir()
	svc := rag.NewServiceWithRetriever(config.Config{}, nil, rag.NewInProcessRetriever(t.TempDir(), &fakeEmbedder{}, nil, &fakeLLM{response: "grounded answer"}, nil))
	return NewQueryHandler(svc, uploadDir), uploadDir
}

func TestQueryHandler_Query_RejectsEmptyQuery(t *testing.T) {
	h, _ := newTestQueryHandler(t)

	body, _ := json.Marshal(dto.QueryRequest{Query: ""})
	req := httptest.NewRequest(http.MethodPost, "/api/query/", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Query(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryHandler_Query_Success(t *testing.T) {
	h, _ := newTestQueryHandler(t)

	body, _ := json.Marshal(dto.QueryRequest{Query: "what happened?"})
	req := httptest.NewRequest(http.MethodPost, "/api/query/", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Query(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "grounded answer", resp.Response)
	assert.Equal(t, "hybrid", resp.Mode)
}

func TestQueryHandler_Query_HonorsExplicitMode(t *testing.T) {
	h, _ := newTestQueryHandler(t)

	body, _ := json.Marshal(dto.QueryRequest{Query: "q", Mode: "local"})
	req := httptest.NewRequest(http.MethodPost, "/api/query/", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Query(rec, req)

	var resp dto.QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "local", resp.Mode)
}

func TestQueryHandler_Multimodal_PersistsInlineImage(t *testing.T) {
	h, uploadDir := newTestQueryHandler(t)

	png := []byte{0x89, 0x50, 0x4e, 0x47}
	req2 := dto.MultimodalQueryRequest{
		Query: "describe this",
		MultimodalContent: []dto.MultimodalContentItem{
			{Type: "image", ImgBase64: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)},
		},
	}
	body, _ := json.Marshal(req2)
	req := httptest.NewRequest(http.MethodPost, "/api/query/multimodal", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Multimodal(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	entries, err := os.ReadDir(filepath.Join(uploadDir, "query_images"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestQueryHandler_Conversation_AppendsHistory(t *testing.T) {
	h, _ := newTestQueryHandler(t)

	body, _ := json.Marshal(dto.ConversationQueryRequest{
		Query: "follow up",
		History: []dto.ConversationTurn{
			{Role: "user", Content: "earlier question"},
			{Role: "assistant", Content: "earlier answer"},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/query/conversation", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Conversation(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.History, 4)
	assert.Equal(t, "follow up", resp.History[2].Content)
}
