package handlers

import (
	"context"
	"testing"

	"github.com/soundprediction/predicato/pkg/nlp"
)

// newCtx returns a background context; a tiny helper so individual test
// bodies don't repeat the import.
func newCtx(t *testing.T) context.Context {
	t.Helper()
	return context.Background()
}

// fakeEmbedder is a deterministic stand-in for a real embedding provider:
// each text maps to a 4-dimensional vector derived from its length, so
// near-identical strings land close together without any network call.
type fakeEmbedder struct{}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string, opts ...nlp.EmbedOption) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		v := float32(len(t) % 7)
		vecs[i] = []float32{v, v, v, v}
	}
	return vecs, nil
}

func (f *fakeEmbedder) Dim() int { return 4 }

func (f *fakeEmbedder) Close() error { return nil }

// fakeLLM returns a fixed reply, ignoring the prompt and history, so
// handler tests can assert on the surrounding response envelope without a
// real LLM provider.
type fakeLLM struct {
	response string
}

func (f *fakeLLM) Complete(ctx context.Context, prompt, system string, history []nlp.Message, opts nlp.CompleteOptions) (string, error) {
	if f.response != "" {
		return f.response, nil
	}
	return "a reply", nil
}

func (f *fakeLLM) CompleteStream(ctx context.Context, prompt, system string, history []nlp.Message, opts nlp.CompleteOptions) (<-chan string, error) {
	reply, err := f.Complete(ctx, prompt, system, history, opts)
	if err != nil {
		return nil, err
	}
	ch := make(chan string, 1)
	ch <- reply
	close(ch)
	return ch, nil
}

func (f *fakeLLM) Close() error { return nil }
