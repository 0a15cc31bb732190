package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeInternal          = "internal"
	CodeNotFound          = "not_found"
	CodeBadRequest        = "bad_request"
	CodeValidation        = "validation"
	CodeUnauthorized      = "unauthorized"
	CodeForbidden         = "forbidden"
	CodeBusinessRejection = "business_rejection"
	CodeTransport         = "transport"
	CodeConflict          = "conflict"
)

// Error represents a structured application error.
type Error struct {
	Code    string
	Status  int
	Message string
	Cause   error
}

// New creates a new Error.
func New(code string, status int, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Status:  status,
		Message: message,
		Cause:   cause,
	}
}

// Internal reports an unexpected failure.
func Internal(message string, cause error) *Error {
	return New(CodeInternal, http.StatusInternalServerError, message, cause)
}

// NotFound reports a missing resource.
func NotFound(message string, cause error) *Error {
	return New(CodeNotFound, http.StatusNotFound, message, cause)
}

// BadRequest reports a malformed request.
func BadRequest(message string, cause error) *Error {
	return New(CodeBadRequest, http.StatusBadRequest, message, cause)
}

// Unauthorized reports a request that needs an authenticated session.
func Unauthorized(message string, cause error) *Error {
	return New(CodeUnauthorized, http.StatusUnauthorized, message, cause)
}

// Forbidden reports a request refused regardless of authentication.
func Forbidden(message string, cause error) *Error {
	return New(CodeForbidden, http.StatusForbidden, message, cause)
}

// Validation reports input rejected before any network call.
func Validation(message string, cause error) *Error {
	return New(CodeValidation, http.StatusUnprocessableEntity, message, cause)
}

// Rejected reports a well-formed negative answer from a remote service.
func Rejected(message string) *Error {
	return New(CodeBusinessRejection, http.StatusUnprocessableEntity, message, nil)
}

// Transport reports that a remote service could not be reached or understood.
func Transport(message string, cause error) *Error {
	return New(CodeTransport, http.StatusBadGateway, message, cause)
}

// Conflict reports a duplicate submission.
func Conflict(message string) *Error {
	return New(CodeConflict, http.StatusConflict, message, nil)
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

// Unwrap returns the root cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// As extracts an *Error if present.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// Is reports whether err carries an *Error with the given code.
func Is(err error, code string) bool {
	appErr := As(err)
	return appErr != nil && appErr.Code == code
}
