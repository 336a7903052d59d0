// Package domain contains the core business entities and domain logic for the Circulate lending service.
package domain

import "time"

// Record provides common identity and timestamp fields for persisted entities.
// Embed it in any type stored as a document.
type Record struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`
}

// Touch updates the UpdatedAt timestamp to the current time.
// Call this whenever the underlying entity changes.
func (r *Record) Touch() {
	r.UpdatedAt = time.Now().UTC()
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
// Call this when creating a new entity.
func (r *Record) InitTimestamps() {
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
}
