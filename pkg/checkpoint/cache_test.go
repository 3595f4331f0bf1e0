package checkpoint

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_SetAndGet(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Set("k1", []byte("v1"), 0))

	v, ok, err := c.Get("k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1", string(v))
}

func TestCache_GetMissingKey(t *testing.T) {
	c := newTestCache(t)
	v, ok, err := c.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestCache_Delete(t *testing.T) {
	c := newTestCache(t)
	require.NoError(t, c.Set("k1", []byte("v1"), 0))
	require.NoError(t, c.Delete("k1"))

	_, ok, err := c.Get("k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_TTLExpiry(t *testing.T) {
	c := newTestCache(t)
	// Badger records expiry in whole Unix seconds, so the TTL and the wait
	// are kept well above one second.
	require.NoError(t, c.Set("k1", []byte("v1"), 2*time.Second))

	v, ok, err := c.Get("k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1", string(v))

	time.Sleep(3 * time.Second)
	_, ok, err = c.Get("k1")
	require.NoError(t, err)
	assert.False(t, ok)
}
