// Package nlp declares the Model Provider Interface: the four capability
// contracts (Embedder, Reranker, LLMCompleter, VisionCompleter) that the
// batching engine, the facade, and every remote adapter are built against.
package nlp

import "context"

// Message is one turn of conversation history passed to a completer.
type Message struct {
	Role    string
	Content string
}

// Common role values for Message.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CompleteOptions carries optional generation parameters. Zero values mean
// "use the provider's default".
type CompleteOptions struct {
	MaxTokens   int
	Temperature float32
}

// EmbedOptions carries optional, provider-specific embedding parameters.
// Unknown keys in Extra MUST be accepted and ignored by every Embedder
// implementation, since some retrievers pass scheduling hints (e.g. a
// priority tag) that not every backend understands.
type EmbedOptions struct {
	Extra map[string]any
}

// EmbedOption mutates an EmbedOptions value.
type EmbedOption func(*EmbedOptions)

// WithExtra attaches an arbitrary, possibly-unrecognized parameter.
func WithExtra(key string, value any) EmbedOption {
	return func(o *EmbedOptions) {
		if o.Extra == nil {
			o.Extra = make(map[string]any)
		}
		o.Extra[key] = value
	}
}

// ResolveEmbedOptions applies a slice of EmbedOption to a fresh EmbedOptions.
func ResolveEmbedOptions(opts ...EmbedOption) EmbedOptions {
	var resolved EmbedOptions
	for _, opt := range opts {
		opt(&resolved)
	}
	return resolved
}

// Embedder turns texts into dense vectors. Empty input yields an empty
// matrix with a consistent Dim(). Implementations must accept and ignore
// unknown EmbedOptions.
type Embedder interface {
	Embed(ctx context.Context, texts []string, opts ...EmbedOption) ([][]float32, error)
	Dim() int
	Close() error
}

// Reranker scores a query against a set of candidate documents. Score scale
// is provider-defined; higher always means more relevant. Empty docs yields
// empty scores.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []string) ([]float64, error)
	Close() error
}

// LLMCompleter generates text completions, optionally as a stream of
// deltas in strict generation order.
type LLMCompleter interface {
	Complete(ctx context.Context, prompt, system string, history []Message, opts CompleteOptions) (string, error)
	CompleteStream(ctx context.Context, prompt, system string, history []Message, opts CompleteOptions) (<-chan string, error)
	Close() error
}

// VisionCompleter generates text conditioned on a prompt plus zero or more
// base64-encoded images. With no images it reduces to text completion.
type VisionCompleter interface {
	CompleteWithImages(ctx context.Context, prompt string, images [][]byte, system string, opts CompleteOptions) (string, error)
	Close() error
}
