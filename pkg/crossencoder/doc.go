// Package crossencoder implements nlp.Reranker: scoring a query against a
// set of candidate passages. NewReranker selects among a local-GPU adapter,
// a local-CPU adapter, and a set of remote REST adapters (Jina, Cohere,
// Voyage, and an OpenAI-compatible fallback) detected from the provider's
// base URL or model name.
package crossencoder
