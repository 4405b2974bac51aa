// Package apperr defines the error kinds the chat core surfaces to its callers.
package apperr

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Code classifies an application error
type Code string

const (
	CodeValidation       Code = "VALIDATION"
	CodeNotFound         Code = "NOT_FOUND"
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
)

// AppError carries a code, a client-safe message and an optional cause
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Validation reports input rejected before persistence.
func Validation(format string, args ...any) error {
	return &AppError{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a referenced user or record that does not exist.
func NotFound(format string, args ...any) error {
	return &AppError{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Unavailable wraps a persistence failure. The cause keeps a stack trace
// so %+v in logs points at the failing call site.
func Unavailable(message string, cause error) error {
	return &AppError{Code: CodeStoreUnavailable, Message: message, Cause: errors.WithStack(cause)}
}

// CodeOf returns the code of the first AppError in err's chain, or "" if none.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// Public returns the code and client-safe message for err. Errors that are
// not AppErrors, and unavailable stores, get a generic message.
func Public(err error) (Code, string) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return CodeStoreUnavailable, "service temporarily unavailable"
	}
	if appErr.Code == CodeStoreUnavailable {
		return appErr.Code, "service temporarily unavailable"
	}
	return appErr.Code, appErr.Message
}

// HTTPStatus maps err to a response status code.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusServiceUnavailable
	}
}
