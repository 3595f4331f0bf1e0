package chatstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/predicato/pkg/checkpoint"
)

func newTestStore(t *testing.T, withCache bool) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "chat_sessions.db")

	var cache *checkpoint.Cache
	if withCache {
		var err error
		cache, err = checkpoint.Open(filepath.Join(t.TempDir(), "cache"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = cache.Close() })
	}

	s, err := New(dbPath, cache)
	require.NoError(t, err)
	return s
}

func TestStore_AppendAndHistory(t *testing.T) {
	s := newTestStore(t, false)
	ctx := context.Background()

	_, err := s.AppendMessage(ctx, "sess-1", "user", "hello")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, "sess-1", "assistant", "hi there")
	require.NoError(t, err)

	history, err := s.History(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, int64(1), history[0].Sequence)
	assert.Equal(t, "assistant", history[1].Role)
	assert.Equal(t, int64(2), history[1].Sequence)
}

func TestStore_HistorySeparatesSessions(t *testing.T) {
	s := newTestStore(t, false)
	ctx := context.Background()

	_, err := s.AppendMessage(ctx, "sess-a", "user", "a1")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, "sess-b", "user", "b1")
	require.NoError(t, err)

	historyA, err := s.History(ctx, "sess-a")
	require.NoError(t, err)
	require.Len(t, historyA, 1)
	assert.Equal(t, "a1", historyA[0].Content)
}

func TestStore_ClearSession(t *testing.T) {
	s := newTestStore(t, false)
	ctx := context.Background()

	_, err := s.AppendMessage(ctx, "sess-1", "user", "hello")
	require.NoError(t, err)
	require.NoError(t, s.ClearSession(ctx, "sess-1"))

	history, err := s.History(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestStore_HistoryEmptySessionReturnsEmpty(t *testing.T) {
	s := newTestStore(t, false)
	history, err := s.History(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestStore_WithCache_ServesFromCacheOnRepeatRead(t *testing.T) {
	s := newTestStore(t, true)
	ctx := context.Background()

	_, err := s.AppendMessage(ctx, "sess-1", "user", "hello")
	require.NoError(t, err)

	first, err := s.History(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := s.History(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStore_WithCache_InvalidatedOnAppend(t *testing.T) {
	s := newTestStore(t, true)
	ctx := context.Background()

	_, err := s.AppendMessage(ctx, "sess-1", "user", "hello")
	require.NoError(t, err)
	_, err = s.History(ctx, "sess-1")
	require.NoError(t, err)

	_, err = s.AppendMessage(ctx, "sess-1", "assistant", "world")
	require.NoError(t, err)

	history, err := s.History(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
