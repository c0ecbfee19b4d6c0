// Package errors provides standardized error handling for the notification engine.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// ErrCodeNoRecipient means no usable destination could be resolved for the
	// requested channel. Surfaced synchronously to the dispatch caller.
	ErrCodeNoRecipient ErrorCode = "NO_RECIPIENT"

	// ErrCodeTemplate means a template body is syntactically malformed.
	ErrCodeTemplate ErrorCode = "TEMPLATE_ERROR"

	// ErrCodeInvalidFilter means a broadcast recipient filter was rejected.
	ErrCodeInvalidFilter ErrorCode = "INVALID_FILTER"

	// ErrCodeSendFailed is a transport failure. Retryable unless the
	// constructor marks it permanent.
	ErrCodeSendFailed ErrorCode = "SEND_FAILED"

	// ErrCodeNotFound means a referenced record vanished between enqueue and
	// processing. Logged, never retried.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeInvalidState means a lifecycle operation ran against a record in
	// the wrong status, usually because another caller got there first.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewNoRecipientError creates a non-retryable missing-destination error.
func NewNoRecipientError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoRecipient,
		Message:   "No usable recipient for channel",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateError creates a non-retryable template syntax error.
func NewTemplateError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplate,
		Message:   "Malformed template",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidFilterError creates a non-retryable recipient filter error.
func NewInvalidFilterError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidFilter,
		Message:   "Invalid broadcast recipient filter",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSendError creates a transport failure. Transient failures are retryable;
// permanent ones (rejected address, disabled account) are not.
func NewSendError(details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      ErrCodeSendFailed,
		Message:   "Notification send failed",
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError creates a non-retryable missing-record error.
func NewNotFoundError(kind, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", kind),
		Details:   id,
		Retryable: false,
		Metadata:  map[string]interface{}{"id": id},
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidStateError creates a non-retryable lifecycle conflict error.
func NewInvalidStateError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidState,
		Message:   "Operation not valid in current status",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// CodeOf extracts the error code, or ErrCodeInternal for unknown errors.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsRetryable reports whether err is worth another delivery attempt.
// Unknown errors are treated as retryable transport faults.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return true
}
