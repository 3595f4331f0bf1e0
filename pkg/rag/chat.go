package rag

import (
	"context"

	"github.com/soundprediction/predicato/pkg/chatstore"
	"github.com/soundprediction/predicato/pkg/nlp"
)

// ChatTurn is one request/response round-trip through /api/chat: the user
// turn and assistant turn are both already persisted by the time this
// returns.
type ChatTurn struct {
	Reply   string
	History []chatstore.ChatMessage
}

// Chat appends the user's message, answers it with the stored history
// folded in as conversation context, appends the assistant's reply, and
// returns both, keeping the HTTP handler thin.
func (s *Service) Chat(ctx context.Context, store *chatstore.Store, sessionID, message string) (*ChatTurn, error) {
	prior, err := store.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	history := make([]nlp.Message, 0, len(prior))
	for _, m := range prior {
		history = append(history, nlp.Message{Role: m.Role, Content: m.Content})
	}

	if _, err := store.AppendMessage(ctx, sessionID, nlp.RoleUser, message); err != nil {
		return nil, err
	}

	reply, err := s.Query(ctx, message, "hybrid", QueryOptions{ConversationHist: history})
	if err != nil {
		return nil, err
	}

	if _, err := store.AppendMessage(ctx, sessionID, nlp.RoleAssistant, reply); err != nil {
		return nil, err
	}

	full, err := store.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &ChatTurn{Reply: reply, History: full}, nil
}
