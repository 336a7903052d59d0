// Package errors provides standardized domain errors with codes for the Circulate API.
//
// Usage:
//
//	// In services - return typed errors
//	if book.AvailableQuantity <= 0 {
//	    return errors.InsufficientCopies("no copies available")
//	}
//
//	// In handlers - check with errors.Is
//	if errors.Is(err, errors.ErrDuplicateLoan) {
//	    // respond 409
//	}
//
//	// Or use the Code directly for switch statements
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeBorrowLimitExceeded:
//	        ...
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound             Code = "NOT_FOUND"
	CodeAlreadyExists        Code = "ALREADY_EXISTS"
	CodeValidation           Code = "VALIDATION"
	CodeConflict             Code = "CONFLICT"
	CodeInternal             Code = "INTERNAL"
	CodeNotAuthorized        Code = "NOT_AUTHORIZED"
	CodeInsufficientCopies   Code = "INSUFFICIENT_COPIES"
	CodeDuplicateLoan        Code = "DUPLICATE_LOAN"
	CodeBorrowLimitExceeded  Code = "BORROW_LIMIT_EXCEEDED"
	CodeRenewalLimitReached  Code = "RENEWAL_LIMIT_REACHED"
	CodeLoanNotActive        Code = "LOAN_NOT_ACTIVE"
	CodeActiveLoansExist     Code = "ACTIVE_LOANS_EXIST"
	CodeNegativeAvailability Code = "NEGATIVE_AVAILABILITY"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeConflict, CodeDuplicateLoan, CodeActiveLoansExist:
		return http.StatusConflict
	case CodeNotAuthorized:
		return http.StatusForbidden
	case CodeValidation, CodeNegativeAvailability:
		return http.StatusBadRequest
	case CodeInsufficientCopies, CodeBorrowLimitExceeded, CodeRenewalLimitReached, CodeLoanNotActive:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound             = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists        = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrValidation           = &Error{Code: CodeValidation, Message: "validation error"}
	ErrConflict             = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInternal             = &Error{Code: CodeInternal, Message: "internal error"}
	ErrNotAuthorized        = &Error{Code: CodeNotAuthorized, Message: "not authorized"}
	ErrInsufficientCopies   = &Error{Code: CodeInsufficientCopies, Message: "no copies available"}
	ErrDuplicateLoan        = &Error{Code: CodeDuplicateLoan, Message: "student already holds this book"}
	ErrBorrowLimitExceeded  = &Error{Code: CodeBorrowLimitExceeded, Message: "borrow limit exceeded"}
	ErrRenewalLimitReached  = &Error{Code: CodeRenewalLimitReached, Message: "renewal limit reached"}
	ErrLoanNotActive        = &Error{Code: CodeLoanNotActive, Message: "loan is not active"}
	ErrActiveLoansExist     = &Error{Code: CodeActiveLoansExist, Message: "active loans reference this book"}
	ErrNegativeAvailability = &Error{Code: CodeNegativeAvailability, Message: "more copies are issued than the new total allows"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// AlreadyExists creates an already exists error.
func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// NotAuthorized creates a not authorized error.
func NotAuthorized(msg string) *Error {
	return &Error{Code: CodeNotAuthorized, Message: msg}
}

// InsufficientCopies creates an insufficient copies error.
func InsufficientCopies(msg string) *Error {
	return &Error{Code: CodeInsufficientCopies, Message: msg}
}

// DuplicateLoan creates a duplicate loan error.
func DuplicateLoan(msg string) *Error {
	return &Error{Code: CodeDuplicateLoan, Message: msg}
}

// BorrowLimitExceeded creates a borrow limit error.
func BorrowLimitExceeded(msg string) *Error {
	return &Error{Code: CodeBorrowLimitExceeded, Message: msg}
}

// RenewalLimitReached creates a renewal limit error.
func RenewalLimitReached(msg string) *Error {
	return &Error{Code: CodeRenewalLimitReached, Message: msg}
}

// LoanNotActive creates a loan not active error.
func LoanNotActive(msg string) *Error {
	return &Error{Code: CodeLoanNotActive, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
