// Package errors provides structured error types for flowgraph.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the graph engine, CLI and API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The graph engine itself only raises three kinds of failure:
//   - INVALID_STATE: an operation on an unbound or stale port, or a port-map
//     query for a port that was never mapped
//   - INVALID_ARGUMENT: a precondition on the arguments does not hold (for
//     example an onto list whose length differs from the free-input count)
//   - NOT_IMPLEMENTED: a node kind that deliberately does not support an
//     operation
//
// Outer layers (model files, cache, server) add INVALID_INPUT, INVALID_FORMAT,
// NOT_FOUND and INTERNAL_ERROR.
//
// None of these are retried. A transformation that fails leaves its
// destination model in an unspecified state and the caller should discard it.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidState, "input port %s is not bound", id)
//	if errors.Is(err, errors.ErrCodeInvalidState) {
//	    // Handle the failure
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidFormat, origErr, "decode %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Graph engine errors
	ErrCodeInvalidState    Code = "INVALID_STATE"
	ErrCodeInvalidArgument Code = "INVALID_ARGUMENT"
	ErrCodeNotImplemented  Code = "NOT_IMPLEMENTED"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidName   Code = "INVALID_NAME"

	// Resource not found errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
