package crossencoder

import (
	"context"
	"crypto/sha256"
	"math"
)

// localReranker is the local-GPU/local-CPU stub backing the
// local-inprocess-gpu selection rule. The Python reference tokenizes with
// left-side padding and defaults the pad token to EOS before tokenization
// (local_embedding.py); this build carries that decision in documentation
// only, since no real go-rust-bert CUDA/FFI runtime is wired in (see
// DESIGN.md). Scores are the cosine between SHA-256-derived vectors of the
// query and each document: deterministic, but not a measure of textual
// overlap. They let the reranking path run end to end without a real model.
type localReranker struct {
	device string // e.g. "cuda:0" or "cpu"
}

// NewLocalGPURerankerClient backs the "Reranker + local-GPU with CUDA
// device hint" selection rule.
func NewLocalGPURerankerClient(device string) *localReranker {
	return &localReranker{device: device}
}

// NewLocalCPURerankerClient backs the "Reranker + local CPU"
// FlagEmbedding-style selection rule, same adapter with a CPU device string.
func NewLocalCPURerankerClient() *localReranker {
	return &localReranker{device: "cpu"}
}

func (r *localReranker) Rerank(ctx context.Context, query string, docs []string) ([]float64, error) {
	if len(docs) == 0 {
		return []float64{}, nil
	}
	scores := make([]float64, len(docs))
	qv := hashVector(query, 64)
	for i, doc := range docs {
		dv := hashVector(doc, 64)
		scores[i] = cosine(qv, dv)
	}
	return scores, nil
}

func (r *localReranker) Close() error { return nil }

func hashVector(text string, dim int) []float64 {
	vec := make([]float64, dim)
	sum := sha256.Sum256([]byte(text))
	for i := 0; i < dim; i++ {
		b := sum[i%len(sum)]
		vec[i] = float64(b)/255.0*2 - 1
	}
	return vec
}

func cosine(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
