package core

import "fmt"

// ValidationError reports caller-fixable input problems: missing fields,
// unsupported document types, extracted text too short. The API layer maps
// it to a 4xx status.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// UpstreamError wraps a failed embedding, completion or store call. Not
// locally recoverable; no retries are attempted anywhere in this service.
// The API layer maps it to a 5xx status.
type UpstreamError struct {
	Op  string // which collaborator failed, e.g. "embedding"
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func upstreamError(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}
