package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents an IdeaShelf error code.
type ErrorCode string

const (
	ErrNoCollaborator ErrorCode = "NO_COLLABORATOR" // selection query target unreachable
	ErrTransport      ErrorCode = "TRANSPORT_ERROR" // channel failed to open or closed early
	ErrTimeout        ErrorCode = "TIMEOUT"         // host unresponsive within bound
	ErrHost           ErrorCode = "HOST_ERROR"      // host reported failure
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrAlreadyExists  ErrorCode = "ALREADY_EXISTS"  // 409
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// ShelfError represents a structured error with code, status, and details.
type ShelfError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *ShelfError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewNoCollaborator creates an error for a document that has no collaborator
// answering selection queries (restricted or unloaded pages).
func NewNoCollaborator(target string) *ShelfError {
	return &ShelfError{
		Code:    ErrNoCollaborator,
		Status:  503,
		Message: fmt.Sprintf("no collaborator for %s", target),
		Details: map[string]any{"target": target},
	}
}

// NewTransport creates an error for a channel that could not open or closed
// before the host responded.
func NewTransport(reason string) *ShelfError {
	if reason == "" {
		reason = "disconnected"
	}
	return &ShelfError{
		Code:    ErrTransport,
		Status:  502,
		Message: reason,
	}
}

// NewTimeout creates an error for a host that did not answer within the bound.
func NewTimeout(timeoutMS int64) *ShelfError {
	return &ShelfError{
		Code:    ErrTimeout,
		Status:  504,
		Message: fmt.Sprintf("host did not respond within %dms", timeoutMS),
		Details: map[string]any{"timeout_ms": timeoutMS},
	}
}

// NewHost creates an error carrying the host-supplied failure message.
func NewHost(msg string) *ShelfError {
	return &ShelfError{
		Code:    ErrHost,
		Status:  500,
		Message: msg,
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ShelfError {
	return &ShelfError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a capture cannot be found.
func NewNotFound(identifier string) *ShelfError {
	return &ShelfError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("capture not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewAlreadyExists creates a 409 error for a capture id that is already stored.
func NewAlreadyExists(id string) *ShelfError {
	return &ShelfError{
		Code:    ErrAlreadyExists,
		Status:  409,
		Message: fmt.Sprintf("capture already stored: %s", id),
		Details: map[string]any{"id": id},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The underlying error is kept in Details for logging, never in Message.
func NewInternal(err error) *ShelfError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &ShelfError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error (or anything it wraps) is a ShelfError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *ShelfError
	if stderrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}

// Message returns the user-facing message of a ShelfError, or fallback for
// any other error.
func Message(err error, fallback string) string {
	var sErr *ShelfError
	if stderrors.As(err, &sErr) && sErr.Message != "" {
		return sErr.Message
	}
	return fallback
}
