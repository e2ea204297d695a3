// Package apperror defines the typed error taxonomy shared by the
// workflow services, repositories and the HTTP layer. Handlers map the
// error code to an HTTP status and surface code and reason to callers
// so client retry logic can react without parsing messages.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for transport mapping.
type Code string

const (
	CodeValidation      Code = "VALIDATION"
	CodeAuthorization   Code = "AUTHORIZATION"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeInvalidPart     Code = "INVALID_PART"
	CodeUpstreamTimeout Code = "UPSTREAM_TIMEOUT"
	CodeInternal        Code = "INTERNAL"
)

// Reason narrows an authorization denial to a machine-readable cause.
type Reason string

const (
	ReasonNotOwner          Reason = "NOT_OWNER"
	ReasonWrongRole         Reason = "WRONG_ROLE"
	ReasonTerminalState     Reason = "TERMINAL_STATE"
	ReasonNotAssigned       Reason = "NOT_ASSIGNED"
	ReasonInvalidTransition Reason = "INVALID_TRANSITION"
)

type AppError struct {
	Code    Code
	Reason  Reason
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// StatusCode maps the error code to its HTTP status.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeAuthorization:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeInvalidPart:
		return http.StatusUnprocessableEntity
	case CodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the caller may safely retry the same
// request. Conflicts come from concurrent status changes and timeouts
// from the catalog, both transient.
func (e *AppError) Retryable() bool {
	return e.Code == CodeConflict || e.Code == CodeUpstreamTimeout
}

func Validation(msg string) *AppError {
	return &AppError{Code: CodeValidation, Message: msg}
}

func Authorization(reason Reason, msg string) *AppError {
	return &AppError{Code: CodeAuthorization, Reason: reason, Message: msg}
}

func NotFound(entity string) *AppError {
	return &AppError{Code: CodeNotFound, Message: entity + " not found"}
}

func Conflict(msg string) *AppError {
	return &AppError{Code: CodeConflict, Message: msg}
}

func InvalidPart(productID string) *AppError {
	return &AppError{Code: CodeInvalidPart, Message: fmt.Sprintf("unknown or unavailable product %s", productID)}
}

func UpstreamTimeout(upstream string, err error) *AppError {
	return &AppError{Code: CodeUpstreamTimeout, Message: upstream + " timed out", Err: err}
}

func Internal(msg string, err error) *AppError {
	return &AppError{Code: CodeInternal, Message: msg, Err: err}
}

// As unwraps err to an *AppError, or nil when it is not one.
func As(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	appErr := As(err)
	return appErr != nil && appErr.Code == code
}
