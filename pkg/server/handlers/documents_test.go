package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
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

func newTestDocumentsHandler(t *testing.T) (*DocumentsHandler, string) {
	t.Helper()
	uploadDir := t.TempDir()
	cat := newTestCatalog(t)
	svc := rag.NewServiceWithRetriever(config.Config{}, nil, rag.NewInProcessRetriever(t.TempDir(), &fakeEmbedder{}, nil, &fakeLLM{}, nil))
	return NewDocumentsHandler(uploadDir, cat, svc, nil), uploadDir
}

func multipartUploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestDocumentsHandler_Upload(t *testing.T) {
	h, uploadDir := newTestDocumentsHandler(t)

	req := multipartUploadRequest(t, "report.txt", "hello world")
	rec := httptest.NewRecorder()

	h.Upload(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.DocumentUploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "report.txt", resp.Filename)
	assert.FileExists(t, filepath.Join(uploadDir, "report.txt"))
}

func TestDocumentsHandler_Upload_DuplicateIsConflict(t *testing.T) {
	h, _ := newTestDocumentsHandler(t)

	h.Upload(httptest.NewRecorder(), multipartUploadRequest(t, "dup.txt", "one"))

	rec := httptest.NewRecorder()
	h.Upload(rec, multipartUploadRequest(t, "dup.txt", "two"))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDocumentsHandler_Process_MissingFileIsNotFound(t *testing.T) {
	h, _ := newTestDocumentsHandler(t)

	body, _ := json.Marshal(dto.DocumentProcessRequest{FilePath: "/no/such/file.txt"})
	req := httptest.NewRequest(http.MethodPost, "/api/documents/process", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Process(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocumentsHandler_Process_Success(t *testing.T) {
	h, uploadDir := newTestDocumentsHandler(t)
	filePath := filepath.Join(uploadDir, "doc.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("some content to index"), 0o644))

	body, _ := json.Marshal(dto.DocumentProcessRequest{FilePath: filePath})
	req := httptest.NewRequest(http.MethodPost, "/api/documents/process", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Process(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.DocumentProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
}

func TestDocumentsHandler_List(t *testing.T) {
	h, uploadDir := newTestDocumentsHandler(t)
	require.NoError(t, os.WriteFile(filepath.Join(uploadDir, "a.txt"), []byte("x"), 0o644))

	req := httptest.NewRequest(http.MethodGet, "/api/documents/list", nil)
	rec := httptest.NewRecorder()

	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.DocumentListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
}

func TestDocumentsHandler_TriggerIndex_UnavailableWithoutIndexer(t *testing.T) {
	h, _ := newTestDocumentsHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/documents/trigger-index", nil)
	rec := httptest.NewRecorder()

	h.TriggerIndex(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDocumentsHandler_Delete_RejectsPathSeparators(t *testing.T) {
	h, _ := newTestDocumentsHandler(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/documents/delete/escape.txt", nil)
	rec := httptest.NewRecorder()

	h.Delete(rec, req, "../escape.txt")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentsHandler_Delete_MovesToTrash(t *testing.T) {
	h, uploadDir := newTestDocumentsHandler(t)
	require.NoError(t, os.WriteFile(filepath.Join(uploadDir, "gone.txt"), []byte("x"), 0o644))

	req := httptest.NewRequest(http.MethodDelete, "/api/documents/delete/gone.txt", nil)
	rec := httptest.NewRecorder()

	h.Delete(rec, req, "gone.txt")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NoFileExists(t, filepath.Join(uploadDir, "gone.txt"))
	entries, err := os.ReadDir(filepath.Join(uploadDir, ".trash"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDocumentsHandler_Delete_MissingFileIsNotFound(t *testing.T) {
	h, _ := newTestDocumentsHandler(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/documents/delete/missing.txt", nil)
	rec := httptest.NewRecorder()

	h.Delete(rec, req, "missing.txt")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
