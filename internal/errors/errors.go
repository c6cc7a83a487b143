package errors

import (
	"fmt"
)

// CaseError is the structured error type for casefind.
// It carries the context needed for error handling, logging, and the
// client-visible messages the CLI prints.
type CaseError struct {
	// Code is the unique error code (e.g., "ERR_402_QUERY_EMPTY").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Store, Backend, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *CaseError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *CaseError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with CaseError.
func (e *CaseError) Is(target error) bool {
	if t, ok := target.(*CaseError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *CaseError) WithDetail(key, value string) *CaseError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *CaseError) WithSuggestion(suggestion string) *CaseError {
	e.Suggestion = suggestion
	return e
}

// New creates a new CaseError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *CaseError {
	return &CaseError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a CaseError from an existing error.
// The error's message becomes the CaseError message.
func Wrap(code string, err error) *CaseError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *CaseError {
	return New(ErrCodeInvalidInput, message, cause)
}

// BackendError creates a backend-related error for the named backend.
func BackendError(code string, backend string, cause error) *CaseError {
	e := Wrap(code, cause)
	if e != nil {
		e.WithDetail("backend", backend)
	}
	return e
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a CaseError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if ce, ok := err.(*CaseError); ok {
		return ce.Retryable
	}
	return false
}

// GetCode extracts the error code from a CaseError.
// Returns empty string if not a CaseError.
func GetCode(err error) string {
	if ce, ok := err.(*CaseError); ok {
		return ce.Code
	}
	return ""
}

// GetCategory extracts the category from a CaseError.
// Returns empty string if not a CaseError.
func GetCategory(err error) Category {
	if ce, ok := err.(*CaseError); ok {
		return ce.Category
	}
	return ""
}
