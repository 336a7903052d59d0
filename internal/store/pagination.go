package store

import (
	"encoding/base64"
	"fmt"
)

// PaginationParams contains pagination request parameters.
type PaginationParams struct {
	Limit  int    // Items per page (defaults to 100, capped at 1000)
	Cursor string // Opaque cursor for the next page (empty for first page)
}

// PaginatedResult contains paginated data and metadata.
type PaginatedResult[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"` // Empty if no more pages
	HasMore    bool   `json:"has_more"`
}

// DefaultPaginationParams returns sensible defaults.
func DefaultPaginationParams() PaginationParams {
	return PaginationParams{Limit: 100}
}

// Validate checks and corrects pagination parameters in place.
func (p *PaginationParams) Validate() {
	if p.Limit <= 0 {
		p.Limit = 100
	}
	if p.Limit > 1000 {
		p.Limit = 1000
	}
}

// EncodeCursor creates an opaque cursor from the last key of a page.
func EncodeCursor(key string) string {
	if key == "" {
		return ""
	}
	return base64.URLEncoding.EncodeToString([]byte(key))
}

// DecodeCursor decodes a cursor back to a database key.
func DecodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}
	decoded, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return "", fmt.Errorf("invalid cursor: %w", err)
	}
	return string(decoded), nil
}
