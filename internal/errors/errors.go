// Package errors defines the coded error kinds shared across the assistant.
package errors

import (
	stderrors "errors"
	"fmt"
)

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches AppErrors by code, so values created with Wrap still satisfy
// errors.Is against their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(code, message string, cause ...error) *AppError {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   c,
	}
}

var (
	ErrConfigNotFound = &AppError{Code: "CONFIG_001", Message: "configuration not found"}
	ErrConfigInvalid  = &AppError{Code: "CONFIG_002", Message: "invalid configuration"}

	// Store failures: I/O errors are fatal to the current operation,
	// a missing key or task id is a normal recoverable result.
	ErrStorage  = &AppError{Code: "STORE_001", Message: "storage operation failed"}
	ErrNotFound = &AppError{Code: "STORE_002", Message: "not found"}

	// Malformed model output, recoverable by the model on the next round-trip.
	ErrUnknownTool      = &AppError{Code: "TOOL_001", Message: "unknown tool"}
	ErrInvalidArguments = &AppError{Code: "TOOL_002", Message: "invalid tool arguments"}

	ErrProviderNotConfigured = &AppError{Code: "LLM_001", Message: "no model provider configured"}
	ErrModelUnavailable      = &AppError{Code: "LLM_002", Message: "model unavailable"}

	// The per-turn tool round-trip cap was hit; the turn degrades, the
	// process does not fail.
	ErrToolLoopExceeded = &AppError{Code: "LOOP_001", Message: "tool round-trip limit exceeded"}

	ErrVoiceNotReady = &AppError{Code: "VOICE_001", Message: "voice pipeline not ready"}
)

func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

func Wrap(err error, sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:    sentinel.Code,
		Message: message,
		Cause:   err,
	}
}
