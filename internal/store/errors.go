package store

import "errors"

// Sentinel errors returned by the store layer. Services translate these
// into API-facing domain errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// ErrConflict is returned when a transaction keeps losing snapshot
	// conflicts after retries. Callers should surface it as a retryable
	// condition.
	ErrConflict = errors.New("transaction conflict")

	ErrBookNotFound    = errors.New("book not found")
	ErrBookExists      = errors.New("book already exists")
	ErrLoanNotFound    = errors.New("loan not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrIssuerNotFound  = errors.New("issuer not found")
)
