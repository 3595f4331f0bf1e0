// Package rag implements the RAG Service Facade: a single lazily-initialized
// retriever instance wrapping document processing, querying, and knowledge
// graph readout, sitting in front of the provider set built by pkg/nlp,
// pkg/embedder, and pkg/crossencoder.
package rag
