// Package id generates prefixed unique identifiers for domain entities.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Entity prefixes. The prefix makes IDs self-describing in logs and keys.
const (
	PrefixBook    = "book"
	PrefixLoan    = "loan"
	PrefixStudent = "stu"
	PrefixIssuer  = "iss"
)

// Generate creates a prefixed unique ID using NanoID
// Format: prefix-nanoid (e.g., "loan-V1StGXR8_Z5jdHi6B-myT")
//
// NanoIDs are URL-friendly, compact (21 characters vs UUID's 36),
// and use a larger alphabet for better entropy per character.
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	// Use default NanoID (21 characters, URL-safe alphabet)
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
// Use this only when you're certain the system entropy is available,
// or when failure should crash the program (e.g., during seeding).
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// NewBookID generates an ID for a catalog book.
func NewBookID() (string, error) { return Generate(PrefixBook) }

// NewLoanID generates an ID for a ledger loan record.
func NewLoanID() (string, error) { return Generate(PrefixLoan) }

// NewStudentID generates an ID for a directory student.
func NewStudentID() (string, error) { return Generate(PrefixStudent) }

// NewIssuerID generates an ID for a directory issuer.
func NewIssuerID() (string, error) { return Generate(PrefixIssuer) }
