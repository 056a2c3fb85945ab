// Package errors provides structured error types for the querier and its
// collaborators. All errors include a category, code, message, and retryable
// flag for consistent error handling across components.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	ErrCategoryStorage    ErrorCategory = "STORAGE"
	ErrCategoryCatalog    ErrorCategory = "CATALOG"
	ErrCategoryMetadata   ErrorCategory = "METADATA"
	ErrCategoryChunk      ErrorCategory = "CHUNK"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Validation codes
	CodeInvalidConfig   = "INVALID_CONFIG"
	CodeInvalidArgument = "INVALID_ARGUMENT"

	// Storage codes
	CodeUploadFailed   = "UPLOAD_FAILED"
	CodeDownloadFailed = "DOWNLOAD_FAILED"
	CodeObjectNotFound = "OBJECT_NOT_FOUND"

	// Catalog codes
	CodeNotFound               = "NOT_FOUND"
	CodeAlreadyExists          = "ALREADY_EXISTS"
	CodeUnresolvedIdentifier   = "UNRESOLVED_IDENTIFIER"
	CodeCatalogOperationFailed = "OPERATION_FAILED"

	// Metadata codes
	CodeCorruptMetadata = "CORRUPT_METADATA"

	// Chunk codes
	CodeOrderOverflow     = "ORDER_OVERFLOW"
	CodeChunkConstruction = "CHUNK_CONSTRUCTION_FAILED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// Error is the structured error type used throughout the system.
type Error struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new Error.
func New(category ErrorCategory, code, message string) *Error {
	return &Error{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *Error {
	return &Error{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not an *Error.
func GetCategory(err error) ErrorCategory {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not an *Error.
func GetCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Transient storage failures are the only retryable class. Everything the
// chunk adapter reports is an invariant violation.
func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryStorage && code == CodeUploadFailed:
		return true
	case category == ErrCategoryStorage && code == CodeDownloadFailed:
		return true
	default:
		return false
	}
}

// Sentinels for errors.Is matching on category and code.
var (
	ErrNotFound             = New(ErrCategoryCatalog, CodeNotFound, "not found")
	ErrAlreadyExists        = New(ErrCategoryCatalog, CodeAlreadyExists, "already exists")
	ErrUnresolvedIdentifier = New(ErrCategoryCatalog, CodeUnresolvedIdentifier, "unresolved identifier")
	ErrCorruptMetadata      = New(ErrCategoryMetadata, CodeCorruptMetadata, "corrupt metadata")
	ErrOrderOverflow        = New(ErrCategoryChunk, CodeOrderOverflow, "order overflow")
	ErrChunkConstruction    = New(ErrCategoryChunk, CodeChunkConstruction, "chunk construction failed")
	ErrObjectNotFound       = New(ErrCategoryStorage, CodeObjectNotFound, "object not found")
)

// Convenience constructors for common errors.

func NewValidationError(code, message string) *Error {
	return New(ErrCategoryValidation, code, message)
}

func NewStorageError(code, message string, cause error) *Error {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewCatalogError(code, message string, cause error) *Error {
	return Wrap(ErrCategoryCatalog, code, message, cause)
}

func NewCorruptMetadataError(message string, cause error) *Error {
	return Wrap(ErrCategoryMetadata, CodeCorruptMetadata, message, cause)
}

func NewUnresolvedIdentifierError(message string, cause error) *Error {
	return Wrap(ErrCategoryCatalog, CodeUnresolvedIdentifier, message, cause)
}

func NewOrderOverflowError(message string, cause error) *Error {
	return Wrap(ErrCategoryChunk, CodeOrderOverflow, message, cause)
}

func NewChunkConstructionError(message string, cause error) *Error {
	return Wrap(ErrCategoryChunk, CodeChunkConstruction, message, cause)
}

func NewInternalError(message string, cause error) *Error {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}

// IsNotFound reports whether err is a catalog NOT_FOUND error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsCorruptMetadata reports whether err signals undecodable file metadata.
func IsCorruptMetadata(err error) bool { return errors.Is(err, ErrCorruptMetadata) }

// IsUnresolvedIdentifier reports whether err signals a dangling catalog reference.
func IsUnresolvedIdentifier(err error) bool { return errors.Is(err, ErrUnresolvedIdentifier) }

// IsOrderOverflow reports whether err signals an unrepresentable chunk order.
func IsOrderOverflow(err error) bool { return errors.Is(err, ErrOrderOverflow) }

// IsChunkConstruction reports whether err signals a file/metadata mismatch.
func IsChunkConstruction(err error) bool { return errors.Is(err, ErrChunkConstruction) }
