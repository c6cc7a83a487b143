// Package errors provides structured error handling for casefind.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Store/index errors
//   - 3XX: Backend/network errors (lexical, vector, embedding, reranker)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStore indicates index/catalog storage errors.
	CategoryStore Category = "STORE"
	// CategoryBackend indicates errors talking to a retrieval or scoring backend.
	CategoryBackend Category = "BACKEND"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Store errors (200-299)
	ErrCodeIndexNotFound = "ERR_201_INDEX_NOT_FOUND"
	ErrCodeIndexLocked   = "ERR_202_INDEX_LOCKED"
	ErrCodeIndexCorrupt  = "ERR_203_INDEX_CORRUPT"
	ErrCodeCaseNotFound  = "ERR_204_CASE_NOT_FOUND"

	// Backend errors (300-399)
	ErrCodeLexicalUnavailable = "ERR_301_LEXICAL_UNAVAILABLE"
	ErrCodeVectorUnavailable  = "ERR_302_VECTOR_UNAVAILABLE"
	ErrCodeEmbeddingFailed    = "ERR_303_EMBEDDING_FAILED"
	ErrCodeRerankerFailed     = "ERR_304_RERANKER_FAILED"
	ErrCodeBackendTimeout     = "ERR_305_BACKEND_TIMEOUT"
	ErrCodeAllBackendsFailed  = "ERR_306_ALL_BACKENDS_FAILED"

	// Validation errors (400-499)
	ErrCodeInvalidInput  = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty    = "ERR_402_QUERY_EMPTY"
	ErrCodeQueryTooLong  = "ERR_403_QUERY_TOO_LONG"
	ErrCodeInvalidFilter = "ERR_404_INVALID_FILTER"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeFusionFailed = "ERR_502_FUSION_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStore
	case '3':
		return CategoryBackend
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode derives the severity level from the error code.
// Single-backend failures degrade; validation rejects; config/store abort.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryBackend:
		if code == ErrCodeAllBackendsFailed {
			return SeverityError
		}
		return SeverityWarning
	case CategoryValidation:
		return SeverityError
	case CategoryConfig, CategoryStore:
		return SeverityFatal
	default:
		return SeverityError
	}
}

// isRetryableCode reports whether an operation failing with this code may
// succeed on retry. Only transient backend failures qualify.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeLexicalUnavailable, ErrCodeVectorUnavailable,
		ErrCodeEmbeddingFailed, ErrCodeRerankerFailed, ErrCodeBackendTimeout:
		return true
	default:
		return false
	}
}
