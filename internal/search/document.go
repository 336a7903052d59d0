// Package search provides full-text catalog search using Bleve, with fuzzy
// matching for typo tolerance and branch/year filtering.
package search

import (
	"github.com/circulateapp/circulate-server/internal/domain"
	"github.com/circulateapp/circulate-server/internal/normalize"
)

// Document is the searchable projection of a catalog book. Inventory
// counters are included so desk staff can see availability directly in
// search results without a second lookup.
type Document struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Branch      string `json:"branch,omitempty"`
	Description string `json:"description,omitempty"`
	Year        int    `json:"year,omitempty"`
	Semester    int    `json:"semester,omitempty"`
	Available   int    `json:"available"`
	Total       int    `json:"total"`
	CreatedAt   int64  `json:"created_at"` // Unix millis
	UpdatedAt   int64  `json:"updated_at"` // Unix millis
}

// ToMap converts the document to a map with lowercase field names.
// Bleve by default uses Go struct field names (capitalized), but the
// mapping uses lowercase names, so we convert explicitly.
func (d *Document) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"title":      d.Title,
		"available":  d.Available,
		"total":      d.Total,
		"created_at": d.CreatedAt,
		"updated_at": d.UpdatedAt,
	}

	if d.Branch != "" {
		m["branch"] = normalize.Branch(d.Branch)
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.Year > 0 {
		m["year"] = d.Year
	}
	if d.Semester > 0 {
		m["semester"] = d.Semester
	}

	return m
}

// FromBook converts a catalog book to a search document.
func FromBook(book *domain.Book) *Document {
	return &Document{
		ID:          book.ID,
		Title:       book.Title,
		Branch:      book.Branch,
		Description: book.Description,
		Year:        book.Year,
		Semester:    book.Semester,
		Available:   book.AvailableQuantity,
		Total:       book.TotalQuantity,
		CreatedAt:   book.CreatedAt.UnixMilli(),
		UpdatedAt:   book.UpdatedAt.UnixMilli(),
	}
}
