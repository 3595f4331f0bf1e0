package crossencoder

// statusError exposes HTTPStatusCode() so pkg/resilience can classify
// retryability without importing any provider-specific HTTP client.
type statusError struct {
	code  int
	cause error
}

func (e *statusError) Error() string       { return e.cause.Error() }
func (e *statusError) Unwrap() error       { return e.cause }
func (e *statusError) HTTPStatusCode() int { return e.code }
