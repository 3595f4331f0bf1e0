package chatstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/soundprediction/predicato/pkg/checkpoint"
	"github.com/soundprediction/predicato/pkg/errs"
)

// historyCacheTTL bounds how stale a cached History read can be before it
// falls back to SQLite; a write always invalidates the affected session's
// entry immediately, so this only matters for sessions nobody is writing to.
const historyCacheTTL = 5 * time.Minute

// ChatMessage is one turn of conversation history.
type ChatMessage struct {
	SessionID string
	Sequence  int64
	Role      string
	Content   string
	CreatedAt time.Time
}

// Store is a SQLite-backed chat session history log, a sibling of
// pkg/catalog.Catalog: each method opens its own short-lived connection
// under WAL journaling.
type Store struct {
	path  string
	cache *checkpoint.Cache // optional; nil disables the read-path cache
}

// New opens (creating if necessary) the chat session database at path and
// ensures its schema exists. cache may be nil to disable the read cache.
func New(path string, cache *checkpoint.Cache) (*Store, error) {
	s := &Store{path: path, cache: cache}
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS chat_messages (
			session_id TEXT NOT NULL,
			sequence   INTEGER NOT NULL,
			role       TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (session_id, sequence)
		)
	`); err != nil {
		return nil, errs.NewInternalError("create chat_messages schema", err)
	}
	return s, nil
}

func (s *Store) open() (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", s.path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errs.NewInternalError("open chat session database", err)
	}
	return db, nil
}

// AppendMessage inserts one turn with the next autoincrement sequence for
// sessionID, then invalidates that session's cached history.
func (s *Store) AppendMessage(ctx context.Context, sessionID, role, content string) (*ChatMessage, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errs.NewInternalError("begin chat append transaction", err)
	}
	defer tx.Rollback()

	var nextSeq int64
	row := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(sequence), 0) + 1 FROM chat_messages WHERE session_id = ?", sessionID)
	if err := row.Scan(&nextSeq); err != nil {
		return nil, errs.NewInternalError("compute next chat sequence for "+sessionID, err)
	}

	msg := ChatMessage{
		SessionID: sessionID,
		Sequence:  nextSeq,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chat_messages (session_id, sequence, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, msg.SessionID, msg.Sequence, msg.Role, msg.Content, msg.CreatedAt.Format(time.RFC3339Nano)); err != nil {
		return nil, errs.NewInternalError(fmt.Sprintf("append chat message for %q", sessionID), err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errs.NewInternalError("commit chat append transaction", err)
	}

	s.invalidateCache(sessionID)
	return &msg, nil
}

// History returns every message for sessionID in insertion order, serving
// from the cache when present and falling back to SQLite on a miss.
func (s *Store) History(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	if s.cache != nil {
		if cached, ok := s.readCache(sessionID); ok {
			return cached, nil
		}
	}

	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT session_id, sequence, role, content, created_at
		FROM chat_messages WHERE session_id = ? ORDER BY sequence ASC
	`, sessionID)
	if err != nil {
		return nil, errs.NewInternalError("list chat history for "+sessionID, err)
	}
	defer rows.Close()

	var out []ChatMessage
	for rows.Next() {
		var (
			msg       ChatMessage
			createdAt string
		)
		if err := rows.Scan(&msg.SessionID, &msg.Sequence, &msg.Role, &msg.Content, &createdAt); err != nil {
			return nil, errs.NewInternalError("scan chat message row", err)
		}
		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, errs.NewInternalError("parse chat message created_at", err)
		}
		msg.CreatedAt = t
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewInternalError("iterate chat history rows", err)
	}

	if s.cache != nil {
		s.writeCache(sessionID, out)
	}
	return out, nil
}

// ClearSession deletes every message for sessionID. Clearing an empty or
// nonexistent session is a no-op.
func (s *Store) ClearSession(ctx context.Context, sessionID string) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "DELETE FROM chat_messages WHERE session_id = ?", sessionID); err != nil {
		return errs.NewInternalError("clear chat session "+sessionID, err)
	}
	s.invalidateCache(sessionID)
	return nil
}

func cacheKey(sessionID string) string {
	return "chatstore:history:" + sessionID
}

func (s *Store) readCache(sessionID string) ([]ChatMessage, bool) {
	raw, ok, err := s.cache.Get(cacheKey(sessionID))
	if err != nil || !ok {
		return nil, false
	}
	var msgs []ChatMessage
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, false
	}
	return msgs, true
}

func (s *Store) writeCache(sessionID string, msgs []ChatMessage) {
	raw, err := json.Marshal(msgs)
	if err != nil {
		return
	}
	_ = s.cache.Set(cacheKey(sessionID), raw, historyCacheTTL)
}

func (s *Store) invalidateCache(sessionID string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(cacheKey(sessionID))
}
