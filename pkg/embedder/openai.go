package embedder

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/soundprediction/predicato/pkg/nlp"
)

// OpenAICompatibleEmbedder implements nlp.Embedder against any
// OpenAI-compatible embeddings endpoint.
type OpenAICompatibleEmbedder struct {
	client *openai.Client
	model  string
	dim    int
}

// NewOpenAICompatibleEmbedder builds an embedder from an API key, model name,
// optional base URL and expected dimension (0 lets the caller learn it from
// the first response, but most OpenAI-compatible models advertise a fixed
// dimension the caller already knows from config).
func NewOpenAICompatibleEmbedder(apiKey, model, baseURL string, dim int) *OpenAICompatibleEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = normalizeBaseURL(baseURL)
	}
	return &OpenAICompatibleEmbedder{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		dim:    dim,
	}
}

func (e *OpenAICompatibleEmbedder) Embed(ctx context.Context, texts []string, opts ...nlp.EmbedOption) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	out := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		out[d.Index] = d.Embedding
	}
	if e.dim == 0 && len(out) > 0 {
		e.dim = len(out[0])
	}
	return out, nil
}

func (e *OpenAICompatibleEmbedder) Dim() int { return e.dim }

func (e *OpenAICompatibleEmbedder) Close() error { return nil }
