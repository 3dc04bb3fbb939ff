package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies why handling a mention failed or was cut short.
type ErrorCode string

const (
	// ErrCodeTransient indicates a collaborator (platform, store, model) failure.
	ErrCodeTransient ErrorCode = "TRANSIENT"
	// ErrCodeExtractionFailed indicates structured extraction produced nothing usable.
	ErrCodeExtractionFailed ErrorCode = "EXTRACTION_FAILED"
	// ErrCodeUnauthorizedAuthor indicates a non-owner posting on a campaign thread.
	ErrCodeUnauthorizedAuthor ErrorCode = "UNAUTHORIZED_AUTHOR"
	// ErrCodeDuplicate indicates the mention was already handled.
	ErrCodeDuplicate ErrorCode = "DUPLICATE"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// PipelineError is a structured error raised while handling a mention.
type PipelineError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *PipelineError) WithContext(key string, value any) *PipelineError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Transient wraps a collaborator failure.
func Transient(msg string, cause error) *PipelineError {
	return &PipelineError{Code: ErrCodeTransient, Message: msg, Cause: cause}
}

// ExtractionFailed creates an extraction failure.
func ExtractionFailed(msg string) *PipelineError {
	return &PipelineError{Code: ErrCodeExtractionFailed, Message: msg}
}

// UnauthorizedAuthor creates an author mismatch error.
func UnauthorizedAuthor(author, owner string) *PipelineError {
	return &PipelineError{
		Code:    ErrCodeUnauthorizedAuthor,
		Message: fmt.Sprintf("author %q is not campaign owner %q", author, owner),
	}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *PipelineError {
	return &PipelineError{Code: ErrCodeInvalidArgument, Message: msg}
}

// Wrap wraps an existing error with a code.
func Wrap(cause error, code ErrorCode, msg string) *PipelineError {
	return &PipelineError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if any error in err's chain has the given code.
func IsCode(err error, code ErrorCode) bool {
	return Code(err) == code
}

// Code extracts the error code from err. Context errors map to their own
// codes; anything else unclassified is transient.
func Code(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var pErr *PipelineError
	if stderrors.As(err, &pErr) {
		return pErr.Code
	}
	switch {
	case stderrors.Is(err, context.Canceled):
		return ErrCodeContextCanceled
	case stderrors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	default:
		return ErrCodeTransient
	}
}
