// Package utils provides small, genuinely shared helpers for the predicato
// library.
//
// This package deliberately stays thin: a vector similarity helper
// (vector.go) used by the in-process retriever, and panic-recovery helpers
// (recovery.go) used by the background indexer and the embedding scheduler.
// Anything not reachable from those callers belongs in the package that
// needs it, not here.
package utils
