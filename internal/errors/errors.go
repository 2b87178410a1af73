// Package errors provides custom error types and error handling utilities.
// Following Go idioms, errors are values that carry context about what went wrong.
package errors

import (
	"errors"
	"fmt"
)

// Kind is the user-visible error classification. The HTTP layer maps a Kind
// to a status code without re-deriving it from the underlying error.
type Kind string

const (
	KindInvalidURL          Kind = "invalid_url"
	KindDuplicateActive     Kind = "duplicate_active"
	KindQueueFull           Kind = "queue_full"
	KindInsufficientStorage Kind = "insufficient_storage"
	KindNotFound            Kind = "not_found"
	KindInvalidState        Kind = "invalid_state"
	KindBadPagination       Kind = "bad_pagination"
	KindImmutableField      Kind = "immutable_field"
	KindInternal            Kind = "internal"
)

// Standard sentinel errors for the application.
// These can be checked with errors.Is() for specific error handling.
var (
	// ErrNotFound indicates a resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicateActive indicates an active download already exists for a URL.
	ErrDuplicateActive = errors.New("an active download already exists for this URL")

	// ErrQueueFull indicates the pending-download admission limit was reached.
	ErrQueueFull = errors.New("pending download queue is full")

	// ErrInvalidURL indicates an invalid, unparsable, or unclassifiable URL.
	ErrInvalidURL = errors.New("invalid or unsupported URL")

	// ErrInsufficientStorage indicates the temp directory lacks free space.
	ErrInsufficientStorage = errors.New("insufficient free storage")

	// ErrInvalidState indicates an operation was attempted from a status
	// that does not permit it.
	ErrInvalidState = errors.New("download is not in a valid state for this operation")

	// ErrBadPagination indicates an out-of-range page or page size.
	ErrBadPagination = errors.New("invalid pagination parameters")

	// ErrImmutableField indicates an attempt to change a field that may not change.
	ErrImmutableField = errors.New("field is immutable")

	// ErrCancelled indicates an operation was cancelled by user action.
	ErrCancelled = errors.New("operation cancelled")
)

// AppError is a structured error type that carries additional context.
type AppError struct {
	Op      string // Operation that failed (e.g., "queue.Enqueue")
	Err     error  // Underlying error
	Message string // User-friendly message
	Kind    Kind   // Error kind for HTTP status mapping
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap allows errors.Is and errors.As to work with wrapped errors.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the given operation and error.
func New(op string, err error) *AppError {
	return &AppError{Op: op, Err: err}
}

// NewWithMessage creates a new AppError with a user-friendly message.
func NewWithMessage(op string, err error, message string) *AppError {
	return &AppError{Op: op, Err: err, Message: message}
}

// NewWithKind creates a new AppError carrying an error Kind.
func NewWithKind(op string, err error, kind Kind, message string) *AppError {
	return &AppError{Op: op, Err: err, Kind: kind, Message: message}
}

// Wrap wraps an existing error with operation context.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{Op: op, Err: err}
}

// WrapWithMessage wraps an error with a user-friendly message.
func WrapWithMessage(op string, err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{Op: op, Err: err, Message: message}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *AppError carrying one; otherwise returns KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Kind != "" {
		return appErr.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrDuplicateActive):
		return KindDuplicateActive
	case errors.Is(err, ErrQueueFull):
		return KindQueueFull
	case errors.Is(err, ErrInvalidURL):
		return KindInvalidURL
	case errors.Is(err, ErrInsufficientStorage):
		return KindInsufficientStorage
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrBadPagination):
		return KindBadPagination
	case errors.Is(err, ErrImmutableField):
		return KindImmutableField
	default:
		return KindInternal
	}
}

// IsNotFound checks if an error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsCancelled checks if an error is a cancellation error.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
