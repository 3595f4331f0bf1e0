package crossencoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
)

// remoteProvider names the detected wire shape for a remote reranker.
type remoteProvider string

const (
	providerJina   remoteProvider = "jina"
	providerCohere remoteProvider = "cohere"
	providerVoyage remoteProvider = "voyage"
	providerOpenAI remoteProvider = "openai-compatible"
)

// detectRemoteProvider implements model_factory.py's _detect_reranker_provider:
// base URL substring first, then model-name substring, defaulting to the
// OpenAI-compatible shape.
func detectRemoteProvider(baseURL, model string) remoteProvider {
	if p, ok := detectFromText(baseURL); ok {
		return p
	}
	if p, ok := detectFromText(model); ok {
		return p
	}
	return providerOpenAI
}

func detectFromText(s string) (remoteProvider, bool) {
	lower := strings.ToLower(s)
	switch {
	case lower == "":
		return "", false
	case strings.Contains(lower, "jina"):
		return providerJina, true
	case strings.Contains(lower, "voyage"):
		return providerVoyage, true
	case strings.Contains(lower, "cohere"), strings.Contains(lower, "rerank"):
		return providerCohere, true
	case strings.Contains(lower, "openai"):
		return providerOpenAI, true
	default:
		return "", false
	}
}

// RemoteReranker implements nlp.Reranker against one of the detected
// provider wire shapes.
type RemoteReranker struct {
	provider   remoteProvider
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewRemoteReranker builds a reranker for the provider detected from
// baseURL/model. An explicit baseURL is always honored for the request
// destination; only the wire shape is chosen by detection.
func NewRemoteReranker(apiKey, model, baseURL string) *RemoteReranker {
	provider := detectRemoteProvider(baseURL, model)
	return &RemoteReranker{
		provider:   provider,
		apiKey:     apiKey,
		model:      model,
		baseURL:    resolveBaseURL(provider, baseURL),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func resolveBaseURL(provider remoteProvider, baseURL string) string {
	if baseURL != "" {
		return baseURL
	}
	switch provider {
	case providerJina:
		return "https://api.jina.ai/v1/rerank"
	case providerCohere:
		return "https://api.cohere.com/v2/rerank"
	case providerVoyage:
		return "https://api.voyageai.com/v1/rerank"
	default:
		return "https://api.openai.com/v1/rerank"
	}
}

func (r *RemoteReranker) Rerank(ctx context.Context, query string, docs []string) ([]float64, error) {
	if len(docs) == 0 {
		return []float64{}, nil
	}

	payload := r.buildRequest(query, docs)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rerank response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, cause: fmt.Errorf("%s rerank status %d: %s", r.provider, resp.StatusCode, string(respBody))}
	}

	// Some gateways emit near-valid JSON (trailing commas, single quotes);
	// repair defensively before decoding, matching the teacher's use of
	// jsonrepair ahead of any LLM/reranker response parse.
	repaired, err := jsonrepair.RepairJSON(string(respBody))
	if err != nil {
		repaired = string(respBody)
	}

	return r.parseResponse([]byte(repaired), len(docs))
}

func (r *RemoteReranker) buildRequest(query string, docs []string) map[string]any {
	switch r.provider {
	case providerVoyage:
		return map[string]any{
			"model":     r.model,
			"query":     query,
			"documents": docs,
			"top_k":     len(docs),
		}
	case providerOpenAI:
		return map[string]any{
			"model":     r.model,
			"query":     query,
			"documents": docs,
		}
	default: // jina, cohere
		return map[string]any{
			"model":            r.model,
			"query":            query,
			"documents":        docs,
			"top_n":            len(docs),
			"return_documents": false,
		}
	}
}

type scoredResult struct {
	Index int     `json:"index"`
	Score float64 `json:"relevance_score"`
}

func (r *RemoteReranker) parseResponse(body []byte, n int) ([]float64, error) {
	var results []scoredResult

	switch r.provider {
	case providerVoyage:
		var parsed struct {
			Data []scoredResult `json:"data"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("decode voyage rerank response: %w", err)
		}
		results = parsed.Data
	case providerOpenAI:
		var parsed struct {
			Results []struct {
				Index int     `json:"index"`
				Score float64 `json:"score"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("decode openai-compatible rerank response: %w", err)
		}
		for _, item := range parsed.Results {
			results = append(results, scoredResult{Index: item.Index, Score: item.Score})
		}
	default: // jina, cohere
		var parsed struct {
			Results []scoredResult `json:"results"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("decode %s rerank response: %w", r.provider, err)
		}
		results = parsed.Results
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	scores := make([]float64, n)
	for _, res := range results {
		if res.Index >= 0 && res.Index < n {
			scores[res.Index] = res.Score
		}
	}
	return scores, nil
}

func (r *RemoteReranker) Close() error { return nil }
