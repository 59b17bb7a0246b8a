package pipeline

import (
	"errors"
	"fmt"
)

// ErrorClass classifies a pipeline error for handling and retry decisions.
type ErrorClass string

const (
	// ErrorClassValidation indicates user-correctable input problems.
	ErrorClassValidation ErrorClass = "validation"

	// ErrorClassNotFound indicates a referenced record is absent.
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassConflict indicates a uniqueness or state conflict,
	// such as uploading bytes that are already stored.
	ErrorClassConflict ErrorClass = "conflict"

	// ErrorClassAuth indicates a pipeline-level credential failure that
	// aborts execution before any remote apply call.
	ErrorClassAuth ErrorClass = "auth"

	// ErrorClassTransient indicates a temporary remote failure.
	ErrorClassTransient ErrorClass = "transient"

	// ErrorClassPermanent indicates a non-recoverable failure.
	ErrorClassPermanent ErrorClass = "permanent"
)

// Common error codes.
const (
	ErrCodeDuplicateContent  = "DUPLICATE_CONTENT"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeAuthentication    = "AUTHENTICATION_FAILED"
	ErrCodeApplyFailed       = "APPLY_FAILED"
	ErrCodeChecksumMismatch  = "CHECKSUM_MISMATCH"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// Error is a classified error with context.
type Error struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Code is an optional code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Resource identifies the record involved, if any.
	Resource string `json:"resource,omitempty"`

	// Err is the underlying cause.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Resource != "" {
		msg = fmt.Sprintf("%s (resource=%s)", msg, e.Resource)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Class, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Class, msg)
}

// Unwrap returns the underlying error for chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on class and code so sentinel comparisons work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// WithResource attaches the involved record's identifier.
func (e *Error) WithResource(resource string) *Error {
	e.Resource = resource
	return e
}

// NewDuplicateContentError reports an upload whose checksum is already stored.
func NewDuplicateContentError(checksum string) *Error {
	return &Error{
		Class:    ErrorClassConflict,
		Code:     ErrCodeDuplicateContent,
		Message:  "identical content already stored",
		Resource: checksum,
	}
}

// NewUnsupportedFormatError reports a file kind outside the supported
// tabular formats.
func NewUnsupportedFormatError(name string) *Error {
	return &Error{
		Class:    ErrorClassValidation,
		Code:     ErrCodeUnsupportedFormat,
		Message:  "unsupported workbook format, expected .xlsx, .xlsm or .csv",
		Resource: name,
	}
}

// NewNotFoundError reports an absent workbook, version or record.
func NewNotFoundError(kind, id string) *Error {
	return &Error{
		Class:    ErrorClassNotFound,
		Code:     ErrCodeNotFound,
		Message:  kind + " not found",
		Resource: id,
	}
}

// NewAuthenticationError reports a pipeline-level credential failure.
func NewAuthenticationError(message string, err error) *Error {
	return &Error{
		Class:   ErrorClassAuth,
		Code:    ErrCodeAuthentication,
		Message: message,
		Err:     err,
	}
}

// NewValidationError reports user-correctable input problems.
func NewValidationError(message string, err error) *Error {
	return &Error{
		Class:   ErrorClassValidation,
		Code:    ErrCodeValidation,
		Message: message,
		Err:     err,
	}
}

// NewInternalError reports a non-recoverable pipeline fault.
func NewInternalError(message string, err error) *Error {
	return &Error{
		Class:   ErrorClassPermanent,
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

func hasCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsDuplicateContent reports whether err is a duplicate-content rejection.
func IsDuplicateContent(err error) bool {
	return hasCode(err, ErrCodeDuplicateContent)
}

// IsUnsupportedFormat reports whether err is an unsupported-format rejection.
func IsUnsupportedFormat(err error) bool {
	return hasCode(err, ErrCodeUnsupportedFormat)
}

// IsNotFound reports whether err refers to an absent record.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsAuthentication reports whether err is a pipeline-level credential failure.
func IsAuthentication(err error) bool {
	return hasCode(err, ErrCodeAuthentication)
}
