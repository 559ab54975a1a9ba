// Package patcherr defines the typed errors shared by the line-patch packages.
package patcherr

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error that occurred
type ErrorType int

const (
	// ErrorTypeUnknown is for unknown errors
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeMalformedDiff is when displayed text cannot be parsed as a unified diff
	ErrorTypeMalformedDiff
	// ErrorTypeMissingTreeReference is when a reverse new-file patch has no tree object
	ErrorTypeMissingTreeReference
	// ErrorTypeInvalidPatch is when a synthesized patch fails validation
	ErrorTypeInvalidPatch
	// ErrorTypeEncoding is when line content cannot be encoded for the target file
	ErrorTypeEncoding
	// ErrorTypeActionDisabled is when the requested action is not available for the file state
	ErrorTypeActionDisabled
	// ErrorTypeApplyInProgress is when an apply for the same file is still running
	ErrorTypeApplyInProgress
)

// String returns the string representation of ErrorType
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeMalformedDiff:
		return "MalformedDiff"
	case ErrorTypeMissingTreeReference:
		return "MissingTreeReference"
	case ErrorTypeInvalidPatch:
		return "InvalidPatch"
	case ErrorTypeEncoding:
		return "Encoding"
	case ErrorTypeActionDisabled:
		return "ActionDisabled"
	case ErrorTypeApplyInProgress:
		return "ApplyInProgress"
	default:
		return "Unknown"
	}
}

// Error represents a line-patch error with additional context
type Error struct {
	Type    ErrorType
	Message string
	Err     error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap allows errors.Is and errors.As to work
func (e *Error) Unwrap() error {
	return e.Err
}

// Is allows comparison with error types
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// New creates a new Error
func New(errType ErrorType, message string, err error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Err:     err,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	e.Context[key] = value
	return e
}

// Sentinels for errors.Is comparisons
var (
	ErrMalformedDiff        = &Error{Type: ErrorTypeMalformedDiff}
	ErrMissingTreeReference = &Error{Type: ErrorTypeMissingTreeReference}
	ErrInvalidPatch         = &Error{Type: ErrorTypeInvalidPatch}
	ErrEncoding             = &Error{Type: ErrorTypeEncoding}
	ErrActionDisabled       = &Error{Type: ErrorTypeActionDisabled}
	ErrApplyInProgress      = &Error{Type: ErrorTypeApplyInProgress}
)

// Common error constructors

// NewMalformedDiffError creates an error for unparsable diff text.
// line is the 1-based line of the displayed text where parsing stopped.
func NewMalformedDiffError(line int, reason string) *Error {
	return New(ErrorTypeMalformedDiff,
		fmt.Sprintf("malformed diff at line %d: %s", line, reason), nil).
		WithContext("line", line)
}

// NewMissingTreeReferenceError creates an error for a reverse new-file patch without tree object
func NewMissingTreeReferenceError(path string) *Error {
	return New(ErrorTypeMissingTreeReference,
		fmt.Sprintf("reverse patch of indexed new file %s requires a tree object id", path), nil).
		WithContext("path", path)
}

// NewInvalidPatchError creates an error for a synthesized patch that does not validate
func NewInvalidPatchError(err error) *Error {
	return New(ErrorTypeInvalidPatch, "synthesized patch is invalid", err)
}

// NewEncodingError creates an error for content that the target encoding cannot represent
func NewEncodingError(encoding string, err error) *Error {
	return New(ErrorTypeEncoding,
		fmt.Sprintf("cannot encode patch as %s", encoding), err).
		WithContext("encoding", encoding)
}

// NewActionDisabledError creates an error for an action unavailable in the current file state
func NewActionDisabledError(action, status string) *Error {
	return New(ErrorTypeActionDisabled,
		fmt.Sprintf("%s is not available for %s changes", action, status), nil).
		WithContext("action", action).
		WithContext("status", status)
}

// NewApplyInProgressError creates an error for overlapping applies on one file
func NewApplyInProgressError(path string) *Error {
	return New(ErrorTypeApplyInProgress,
		fmt.Sprintf("a line patch for %s is already being applied", path), nil).
		WithContext("path", path)
}

// IsMalformedDiff reports whether err is a malformed diff error
func IsMalformedDiff(err error) bool {
	return errors.Is(err, ErrMalformedDiff)
}
