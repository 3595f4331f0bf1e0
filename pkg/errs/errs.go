// Package errs declares the tagged error kinds used across the RAG backend's
// control plane. Each kind is a distinct type implementing error and Is, so
// call sites can branch with errors.Is/errors.As instead of string matching.
package errs

import "fmt"

// NotFoundError indicates a missing file or unknown path.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

func NewNotFoundError(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError indicates a duplicate upload or similar state clash.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Is(target error) bool {
	_, ok := target.(*ConflictError)
	return ok
}

func NewConflictError(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// InvalidError indicates a malformed request: bad filename, bad base64, or
// an oversized image.
type InvalidError struct {
	Message string
}

func (e *InvalidError) Error() string { return e.Message }

func (e *InvalidError) Is(target error) bool {
	_, ok := target.(*InvalidError)
	return ok
}

func NewInvalidError(format string, args ...interface{}) *InvalidError {
	return &InvalidError{Message: fmt.Sprintf(format, args...)}
}

// UnsupportedMediaError indicates a file extension the files endpoint
// refuses to serve.
type UnsupportedMediaError struct {
	Message string
}

func (e *UnsupportedMediaError) Error() string { return e.Message }

func (e *UnsupportedMediaError) Is(target error) bool {
	_, ok := target.(*UnsupportedMediaError)
	return ok
}

func NewUnsupportedMediaError(format string, args ...interface{}) *UnsupportedMediaError {
	return &UnsupportedMediaError{Message: fmt.Sprintf(format, args...)}
}

// ForbiddenError indicates a permission-denied filesystem operation.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

func (e *ForbiddenError) Is(target error) bool {
	_, ok := target.(*ForbiddenError)
	return ok
}

func NewForbiddenError(format string, args ...interface{}) *ForbiddenError {
	return &ForbiddenError{Message: fmt.Sprintf(format, args...)}
}

// RemoteAPIError wraps a failure from an upstream HTTP provider. Retryable
// reports whether the failure class (5xx, network, timeout) is eligible for
// retry; 4xx responses set Retryable=false and are fatal.
type RemoteAPIError struct {
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

func (e *RemoteAPIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *RemoteAPIError) Unwrap() error { return e.Cause }

func (e *RemoteAPIError) Is(target error) bool {
	_, ok := target.(*RemoteAPIError)
	return ok
}

func NewRemoteAPIError(statusCode int, retryable bool, cause error) *RemoteAPIError {
	return &RemoteAPIError{
		Message:    fmt.Sprintf("remote API error (status %d)", statusCode),
		StatusCode: statusCode,
		Retryable:  retryable,
		Cause:      cause,
	}
}

// EncoderError indicates the GPU/model encoder call failed for one or more
// requests in a batch. The whole batch fails together; see the Dynamic Batch
// Scheduler's failure semantics.
type EncoderError struct {
	Message string
	Cause   error
}

func (e *EncoderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *EncoderError) Unwrap() error { return e.Cause }

func (e *EncoderError) Is(target error) bool {
	_, ok := target.(*EncoderError)
	return ok
}

func NewEncoderError(message string, cause error) *EncoderError {
	return &EncoderError{Message: message, Cause: cause}
}

// IntegrityError indicates the durable catalog or chat store failed an I/O
// operation.
type IntegrityError struct {
	Message string
	Cause   error
}

func (e *IntegrityError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *IntegrityError) Unwrap() error { return e.Cause }

func (e *IntegrityError) Is(target error) bool {
	_, ok := target.(*IntegrityError)
	return ok
}

func NewIntegrityError(message string, cause error) *IntegrityError {
	return &IntegrityError{Message: message, Cause: cause}
}

// UnavailableError indicates a feature is disabled by configuration (e.g.
// auto-indexing turned off).
type UnavailableError struct {
	Message string
}

func (e *UnavailableError) Error() string { return e.Message }

func (e *UnavailableError) Is(target error) bool {
	_, ok := target.(*UnavailableError)
	return ok
}

func NewUnavailableError(format string, args ...interface{}) *UnavailableError {
	return &UnavailableError{Message: fmt.Sprintf(format, args...)}
}

// InternalError is the catch-all for anything unclassified, including the
// case where the query pipeline returns an empty response.
type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error { return e.Cause }

func (e *InternalError) Is(target error) bool {
	_, ok := target.(*InternalError)
	return ok
}

func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{Message: message, Cause: cause}
}

// CancelledError indicates an embedding request was cancelled, either by the
// batch scheduler shutting down or by the caller's context.
type CancelledError struct {
	Message string
}

func (e *CancelledError) Error() string { return e.Message }

func (e *CancelledError) Is(target error) bool {
	_, ok := target.(*CancelledError)
	return ok
}

func NewCancelledError(message string) *CancelledError {
	if message == "" {
		message = "operation cancelled by shutdown"
	}
	return &CancelledError{Message: message}
}
