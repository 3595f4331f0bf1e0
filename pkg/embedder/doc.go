// Package embedder provides nlp.Embedder implementations: REST adapters for
// OpenAI-compatible and Jina endpoints, a local in-process encoder, and the
// Dynamic Batch Scheduler that coalesces many small embedding calls into
// fewer, larger encoder invocations.
//
// # Selection
//
// NewEmbedder picks a concrete implementation from a provider config:
//   - Backend local-inprocess-gpu -> a scheduler wrapping a local encoder.
//   - Backend remote-jina, or a Jina marker in model name/base URL -> the
//     Jina REST adapter.
//   - Otherwise -> the OpenAI-compatible REST adapter.
//
// Every remote adapter is wrapped with retry (and, if configured, a circuit
// breaker) before being returned.
package embedder
