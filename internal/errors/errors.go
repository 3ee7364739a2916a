package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"sempower/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping the code of a wrapped
// AppError or deriving one from the domain sentinels.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    GetCode(err),
		Message: message,
		Cause:   err,
	}
}

// GetCode returns the code of the outermost AppError, the code matching a
// domain sentinel, or "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	switch {
	case core.IsInvalidArgument(err):
		return CodeInvalidArgument
	case core.IsUpstreamFitFailure(err):
		return CodeUpstreamFit
	case stderrors.Is(err, core.ErrTargetUnreachable):
		return CodeTargetUnreachable
	}
	return "UNKNOWN"
}

// HTTPStatus maps an error to the status code the API responds with
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case CodeInvalidArgument, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUpstreamFit, CodeTargetUnreachable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Predefined error codes
const (
	CodeConfigInvalid     = "CONFIG_INVALID"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeInvalidArgument   = "INVALID_ARGUMENT"
	CodeUpstreamFit       = "UPSTREAM_FIT_FAILURE"
	CodeTargetUnreachable = "TARGET_UNREACHABLE"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}
