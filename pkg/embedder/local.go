package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// deterministicEncoder is the local-inprocess-gpu LocalEncoder used when no
// real accelerator runtime is wired into this build. It produces stable,
// normalized pseudo-embeddings from a text's hash so the scheduler, the
// catalog and the query path have something real to exercise end to end.
// A production deployment would swap this for a CUDA-backed tokenizer and
// model (the role go-rust-bert/go-gline-rs play for the reranker side);
// see DESIGN.md for why those bindings aren't wired in this build.
type deterministicEncoder struct {
	dim int
}

// NewDeterministicEncoder builds a LocalEncoder of the given dimension.
func NewDeterministicEncoder(dim int) LocalEncoder {
	if dim <= 0 {
		dim = 1024
	}
	return &deterministicEncoder{dim: dim}
}

func (e *deterministicEncoder) Dim() int { return e.dim }

func (e *deterministicEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *deterministicEncoder) vector(text string) []float32 {
	vec := make([]float32, e.dim)
	seed := []byte(text)
	var counter uint32
	var sumSq float64
	for i := 0; i < e.dim; i++ {
		h := sha256.New()
		h.Write(seed)
		var ctr [4]byte
		binary.BigEndian.PutUint32(ctr[:], counter)
		h.Write(ctr[:])
		sum := h.Sum(nil)
		v := float64(binary.BigEndian.Uint32(sum[:4]))/float64(math.MaxUint32)*2 - 1
		vec[i] = float32(v)
		sumSq += v * v
		counter++
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

// NewLocalScheduledEmbedder wires a deterministic local encoder behind the
// Dynamic Batch Scheduler, matching the local-inprocess-gpu selection rule.
func NewLocalScheduledEmbedder(dim int, cfg SchedulerConfig) *Scheduler {
	return NewScheduler(NewDeterministicEncoder(dim), cfg)
}
