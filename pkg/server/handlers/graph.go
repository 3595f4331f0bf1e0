package handlers

import (
	"net/http"
	"strconv"

	"github.com/soundprediction/predicato/pkg/rag"
)

// GraphHandler serves /api/graph/*.
type GraphHandler struct {
	rag *rag.Service
}

// NewGraphHandler builds a GraphHandler.
func NewGraphHandler(svc *rag.Service) *GraphHandler {
	return &GraphHandler{rag: svc}
}

// Data handles GET /api/graph/data?limit=.
func (h *GraphHandler) Data(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	data, err := h.rag.GraphData(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// Stats handles GET /api/graph/stats.
func (h *GraphHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.rag.GraphStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
