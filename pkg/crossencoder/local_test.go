package crossencoder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalReranker_DeterministicAndOrdered(t *testing.T) {
	r := NewLocalCPURerankerClient()
	ctx := context.Background()

	scores1, err := r.Rerank(ctx, "query", []string{"a", "b"})
	require.NoError(t, err)
	scores2, err := r.Rerank(ctx, "query", []string{"a", "b"})
	require.NoError(t, err)

	assert.Equal(t, scores1, scores2)
	assert.Len(t, scores1, 2)
}

func TestLocalReranker_EmptyDocs(t *testing.T) {
	r := NewLocalGPURerankerClient("cuda:0")
	scores, err := r.Rerank(context.Background(), "query", nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
}
