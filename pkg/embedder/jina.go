package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/soundprediction/predicato/pkg/nlp"
)

// jinaSupportedExtraParams allowlists the only kwargs Jina's embeddings API
// understands. encoding_format is deliberately never sent: Jina rejects it.
var jinaSupportedExtraParams = map[string]bool{
	"task":           true,
	"dimensions":     true,
	"late_chunking":  true,
	"embedding_type": true,
}

// JinaEmbedder implements nlp.Embedder against the Jina AI embeddings API
// directly, rather than through the OpenAI-compatible client, since Jina's
// wire shape rejects the encoding_format field go-openai always sends.
type JinaEmbedder struct {
	apiKey     string
	model      string
	baseURL    string
	dim        int
	httpClient *http.Client
}

// NewJinaEmbedder builds a Jina embedder. dim must be known up front: the
// API does not report it.
func NewJinaEmbedder(apiKey, model, baseURL string, dim int) *JinaEmbedder {
	if baseURL == "" {
		baseURL = "https://api.jina.ai/v1/embeddings"
	}
	return &JinaEmbedder{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		dim:        dim,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type jinaEmbedItem struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type jinaEmbedResponse struct {
	Data []jinaEmbedItem `json:"data"`
}

func (e *JinaEmbedder) Embed(ctx context.Context, texts []string, opts ...nlp.EmbedOption) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resolved := nlp.ResolveEmbedOptions(opts...)

	payload := map[string]any{
		"model": e.model,
		"input": texts,
	}
	for key, value := range resolved.Extra {
		if jinaSupportedExtraParams[key] {
			payload[key] = value
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode jina request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build jina request: %w", err)
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jina request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read jina response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, cause: fmt.Errorf("jina status %d: %s", resp.StatusCode, string(respBody))}
	}

	var parsed jinaEmbedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode jina response: %w", err)
	}

	out := make([][]float32, len(parsed.Data))
	for _, item := range parsed.Data {
		out[item.Index] = item.Embedding
	}
	return out, nil
}

func (e *JinaEmbedder) Dim() int { return e.dim }

func (e *JinaEmbedder) Close() error { return nil }
