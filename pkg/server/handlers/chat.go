package handlers

import (
	"net/http"
	"time"

	"github.com/soundprediction/predicato/pkg/chatstore"
	"github.com/soundprediction/predicato/pkg/errs"
	"github.com/soundprediction/predicato/pkg/rag"
	"github.com/soundprediction/predicato/pkg/server/dto"
)

// ChatHandler serves POST /api/chat.
type ChatHandler struct {
	rag   *rag.Service
	store *chatstore.Store
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(svc *rag.Service, store *chatstore.Store) *ChatHandler {
	return &ChatHandler{rag: svc, store: store}
}

// Chat handles POST /api/chat: append the user turn, answer it with stored
// history folded in, append the assistant turn, and return both.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req dto.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.SessionID == "" {
		writeError(w, errs.NewInvalidError("session_id must not be empty"))
		return
	}
	if req.Message == "" {
		writeError(w, errs.NewInvalidError("message must not be empty"))
		return
	}

	turn, err := h.rag.Chat(r.Context(), h.store, req.SessionID, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}

	history := make([]dto.ChatHistoryEntry, len(turn.History))
	for i, m := range turn.History {
		history[i] = dto.ChatHistoryEntry{
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	writeJSON(w, http.StatusOK, dto.ChatResponse{
		SessionID: req.SessionID,
		Reply:     turn.Reply,
		History:   history,
	})
}
