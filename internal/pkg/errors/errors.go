// Package errors provides custom error types and error handling utilities.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes.
const (
	// Input errors.
	CodeValidation        = "VALIDATION_ERROR"
	CodeDirectoryNotFound = "DIRECTORY_NOT_FOUND"
	CodeParse             = "PARSE_ERROR"

	// Runtime errors.
	CodeIO          = "IO_ERROR"
	CodeEvaluation  = "EVALUATION_ERROR"
	CodeUnavailable = "SERVICE_UNAVAILABLE"
	CodeTimeout     = "TIMEOUT"
	CodeNotFound    = "NOT_FOUND"
	CodeInternal    = "INTERNAL_ERROR"
)

// AppError represents an application error with code and details.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit status for this error.
func (e *AppError) ExitCode() int {
	switch e.Code {
	case CodeValidation:
		return 2
	case CodeDirectoryNotFound, CodeNotFound:
		return 3
	case CodeParse:
		return 4
	case CodeIO:
		return 5
	case CodeEvaluation:
		return 6
	case CodeUnavailable, CodeTimeout:
		return 7
	default:
		return 1
	}
}

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError.
func Wrap(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Convenience constructors.

// ValidationError creates a validation error.
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// DirectoryNotFoundError creates an error for a missing input directory.
func DirectoryNotFoundError(path string) *AppError {
	return New(CodeDirectoryNotFound, fmt.Sprintf("directory %s not found", path)).
		WithDetail("path", path)
}

// ParseError creates an error for an input line that could not be decoded.
func ParseError(file string, line int, err error) *AppError {
	return Wrap(CodeParse, fmt.Sprintf("invalid document at %s:%d", file, line), err).
		WithDetail("file", file).
		WithDetail("line", fmt.Sprintf("%d", line))
}

// IOError creates a filesystem error for the given path.
func IOError(message, path string, err error) *AppError {
	return Wrap(CodeIO, message, err).WithDetail("path", path)
}

// EvaluationError creates an error for a failed evaluation step.
func EvaluationError(message string, err error) *AppError {
	return Wrap(CodeEvaluation, message, err)
}

// InternalError creates an internal error.
func InternalError(message string, err error) *AppError {
	return Wrap(CodeInternal, message, err)
}

// ServiceUnavailableError creates a service unavailable error.
func ServiceUnavailableError(service string) *AppError {
	message := "service unavailable"
	if service != "" {
		message = fmt.Sprintf("%s is unavailable", service)
	}
	return New(CodeUnavailable, message)
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsDirectoryNotFound checks if error is a missing-directory error.
func IsDirectoryNotFound(err error) bool {
	return CodeOf(err) == CodeDirectoryNotFound
}

// IsParse checks if error is a parse error.
func IsParse(err error) bool {
	return CodeOf(err) == CodeParse
}

// IsIO checks if error is a filesystem error.
func IsIO(err error) bool {
	return CodeOf(err) == CodeIO
}

// IsValidation checks if error is a validation error.
func IsValidation(err error) bool {
	return CodeOf(err) == CodeValidation
}

// ExitCode maps any error to a process exit status. nil maps to 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.ExitCode()
	}
	return 1
}
