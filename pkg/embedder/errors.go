package embedder

import (
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(baseURL, "/v1") {
		return baseURL
	}
	return baseURL + "/v1"
}

// statusError exposes HTTPStatusCode() so pkg/resilience can classify
// retryability without importing the openai package.
type statusError struct {
	code  int
	cause error
}

func (e *statusError) Error() string       { return e.cause.Error() }
func (e *statusError) Unwrap() error       { return e.cause }
func (e *statusError) HTTPStatusCode() int { return e.code }

func classifyOpenAIError(err error) error {
	if apiErr, ok := err.(*openai.APIError); ok {
		return &statusError{code: apiErr.HTTPStatusCode, cause: err}
	}
	return fmt.Errorf("embedding request failed: %w", err)
}
