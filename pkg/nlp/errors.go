package nlp

import "errors"

// Sentinel errors surfaced by provider adapters. Kind-level classification
// for HTTP mapping lives in pkg/errs; these stay local to nlp because they
// describe provider-specific failure modes, not request-lifecycle kinds.
var (
	// ErrEmptyResponse indicates the provider returned no usable content.
	ErrEmptyResponse = errors.New("provider returned an empty response")

	// ErrRefusal indicates the provider declined to answer the prompt.
	ErrRefusal = errors.New("provider refused to respond to this prompt")
)
