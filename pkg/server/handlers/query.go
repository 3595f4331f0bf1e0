package handlers

import (
	"net/http"
	"os"
	"time"

	"github.com/soundprediction/predicato/pkg/errs"
	"github.com/soundprediction/predicato/pkg/nlp"
	"github.com/soundprediction/predicato/pkg/rag"
	"github.com/soundprediction/predicato/pkg/server/dto"
)

const defaultQueryMode = "hybrid"

// QueryHandler serves /api/query/*.
type QueryHandler struct {
	rag       *rag.Service
	uploadDir string
}

// NewQueryHandler builds a QueryHandler. uploadDir is where inline
// multimodal query images are persisted.
func NewQueryHandler(svc *rag.Service, uploadDir string) *QueryHandler {
	return &QueryHandler{rag: svc, uploadDir: uploadDir}
}

func queryMode(m string) string {
	if m == "" {
		return defaultQueryMode
	}
	return m
}

func queryOptions(topK, maxTokens int, temperature float32) rag.QueryOptions {
	return rag.QueryOptions{TopK: topK, MaxTokens: maxTokens, Temperature: temperature}
}

// Query handles POST /api/query/.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req dto.QueryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Query == "" {
		writeError(w, errs.NewInvalidError("query must not be empty"))
		return
	}

	mode := queryMode(req.Mode)
	resp, err := h.rag.Query(r.Context(), req.Query, mode, queryOptions(req.TopK, req.MaxTokens, req.Temperature))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.QueryResponse{
		Query:    req.Query,
		Response: resp,
		Mode:     mode,
		Metadata: dto.QueryResponseMetadata{Timestamp: time.Now().UTC().Format(time.RFC3339)},
	})
}

// Multimodal handles POST /api/query/multimodal.
func (h *QueryHandler) Multimodal(w http.ResponseWriter, r *http.Request) {
	var req dto.MultimodalQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Query == "" {
		writeError(w, errs.NewInvalidError("query must not be empty"))
		return
	}

	items := make([]rag.MultimodalItem, 0, len(req.MultimodalContent))
	for _, c := range req.MultimodalContent {
		item := rag.MultimodalItem{Type: c.Type, TableText: c.TableText, EquationTex: c.EquationTex}
		if c.Type == "image" && c.ImgBase64 != "" {
			path, err := rag.SaveQueryImage(h.uploadDir, c.ImgBase64, time.Now())
			if err != nil {
				writeError(w, err)
				return
			}
			item.ImagePath = path
			if data, readErr := os.ReadFile(path); readErr == nil {
				item.ImageBytes = data
			}
		}
		items = append(items, item)
	}

	mode := queryMode(req.Mode)
	resp, err := h.rag.QueryWithMultimodal(r.Context(), req.Query, items, mode, queryOptions(req.TopK, req.MaxTokens, req.Temperature))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.QueryResponse{
		Query:    req.Query,
		Response: resp,
		Mode:     mode,
		Metadata: dto.QueryResponseMetadata{Timestamp: time.Now().UTC().Format(time.RFC3339)},
	})
}

// Conversation handles POST /api/query/conversation: the supplied history
// is folded into the LLM call, then echoed back with the new user/assistant
// turns appended.
func (h *QueryHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	var req dto.ConversationQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Query == "" {
		writeError(w, errs.NewInvalidError("query must not be empty"))
		return
	}

	hist := make([]nlp.Message, 0, len(req.History))
	for _, t := range req.History {
		hist = append(hist, nlp.Message{Role: t.Role, Content: t.Content})
	}

	mode := queryMode(req.Mode)
	opts := queryOptions(req.TopK, req.MaxTokens, req.Temperature)
	opts.ConversationHist = hist

	resp, err := h.rag.Query(r.Context(), req.Query, mode, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	updatedHistory := make([]dto.ConversationTurn, 0, len(req.History)+2)
	updatedHistory = append(updatedHistory, req.History...)
	updatedHistory = append(updatedHistory,
		dto.ConversationTurn{Role: nlp.RoleUser, Content: req.Query, Timestamp: now},
		dto.ConversationTurn{Role: nlp.RoleAssistant, Content: resp, Timestamp: now},
	)

	writeJSON(w, http.StatusOK, dto.QueryResponse{
		Query:    req.Query,
		Response: resp,
		Mode:     mode,
		Metadata: dto.QueryResponseMetadata{Timestamp: now},
		History:  updatedHistory,
	})
}
