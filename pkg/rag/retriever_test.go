package rag

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/predicato/pkg/nlp"
)

// fakeEmbedder returns a unit vector whose single nonzero component is
// chosen by a keyword match, so cosine similarity in tests is predictable
// without depending on the real deterministic hash encoder.
type fakeEmbedder struct {
	dim int
}

func (f *fakeEmbedder) Dim() int { return f.dim }
func (f *fakeEmbedder) Close() error { return nil }

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string, opts ...nlp.EmbedOption) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec := make([]float32, f.dim)
		lower := strings.ToLower(t)
		switch {
		case strings.Contains(lower, "apple"):
			vec[0] = 1
		case strings.Contains(lower, "orange"):
			vec[1] = 1
		default:
			vec[2] = 1
		}
		out[i] = vec
	}
	return out, nil
}

type fakeLLM struct {
	lastPrompt string
	response   string
}

func (f *fakeLLM) Close() error { return nil }

func (f *fakeLLM) Complete(ctx context.Context, prompt, system string, history []nlp.Message, opts nlp.CompleteOptions) (string, error) {
	f.lastPrompt = prompt
	if f.response != "" {
		return f.response, nil
	}
	return "answer", nil
}

func (f *fakeLLM) CompleteStream(ctx context.Context, prompt, system string, history []nlp.Message, opts nlp.CompleteOptions) (<-chan string, error) {
	ch := make(chan string, 1)
	ch <- "answer"
	close(ch)
	return ch, nil
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInProcessRetriever_ProcessAndQuery(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "fruit.txt", "Apple trees grow apples.\n\nOranges grow on orange trees.")

	llm := &fakeLLM{response: "apples are red"}
	r := NewInProcessRetriever(dir, &fakeEmbedder{dim: 4}, nil, llm, nil)
	defer r.Close()

	ctx := context.Background()
	require.NoError(t, r.ProcessDocument(ctx, path, dir, "auto"))

	resp, err := r.Query(ctx, "tell me about apple", "hybrid", QueryOptions{TopK: 1})
	require.NoError(t, err)
	assert.Equal(t, "apples are red", resp)
	assert.Contains(t, llm.lastPrompt, "Apple trees")
}

func TestInProcessRetriever_QueryWithNoDocuments(t *testing.T) {
	dir := t.TempDir()
	llm := &fakeLLM{}
	r := NewInProcessRetriever(dir, &fakeEmbedder{dim: 4}, nil, llm, nil)
	defer r.Close()

	resp, err := r.Query(context.Background(), "anything", "hybrid", QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, "answer", resp)
}

func TestInProcessRetriever_ProcessDocumentMissingFile(t *testing.T) {
	dir := t.TempDir()
	r := NewInProcessRetriever(dir, &fakeEmbedder{dim: 4}, nil, &fakeLLM{}, nil)
	defer r.Close()

	err := r.ProcessDocument(context.Background(), filepath.Join(dir, "missing.txt"), dir, "auto")
	require.Error(t, err)
}

func TestInProcessRetriever_EntityAndRelationRecords(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "doc.txt", "Alice met Bob near Carol's house.")

	r := NewInProcessRetriever(dir, &fakeEmbedder{dim: 4}, nil, &fakeLLM{}, nil)
	defer r.Close()

	ctx := context.Background()
	require.NoError(t, r.ProcessDocument(ctx, path, dir, "auto"))

	entityReader, err := r.EntityRecords(ctx)
	require.NoError(t, err)
	records, err := entityReader.List(ctx)
	require.NoError(t, err)
	rec, ok := records[path].(EntityRecord)
	require.True(t, ok)
	assert.Contains(t, rec.EntityNames, "Alice")

	entity, found, err := r.GetEntity(ctx, "Alice")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, path, entity.SourceID)
}

func TestSplitIntoChunks(t *testing.T) {
	text := strings.Repeat("a", 600) + "\n\n" + strings.Repeat("b", 600)
	chunks := splitIntoChunks(text, 1000)
	require.Len(t, chunks, 2)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosine(nil, []float32{1}))
}
