package domain

import "fmt"

// Book represents a physical title in the library catalog together with its
// inventory counters.
//
// The counters carry the catalog's core invariant:
//
//	AvailableQuantity + IssuedQuantity == TotalQuantity
//
// They are mutated only by issue/return transactions and by total-quantity
// reconciliation; never edited directly.
type Book struct {
	Record
	Title             string `json:"title"`
	Branch            string `json:"branch"`
	Year              int    `json:"year,omitempty"`
	Semester          int    `json:"semester,omitempty"`
	Price             int64  `json:"price,omitempty"` // minor currency units
	Description       string `json:"description,omitempty"`
	TotalQuantity     int    `json:"total_quantity"`
	AvailableQuantity int    `json:"available_quantity"`
	IssuedQuantity    int    `json:"issued_quantity"`
}

// CheckCounters verifies the inventory invariant. It returns an error naming
// the violated condition; persistence paths call it before every write.
func (b *Book) CheckCounters() error {
	if b.TotalQuantity < 0 || b.AvailableQuantity < 0 || b.IssuedQuantity < 0 {
		return fmt.Errorf("book %s: negative counter (total=%d available=%d issued=%d)",
			b.ID, b.TotalQuantity, b.AvailableQuantity, b.IssuedQuantity)
	}
	if b.AvailableQuantity+b.IssuedQuantity != b.TotalQuantity {
		return fmt.Errorf("book %s: counters out of balance (total=%d available=%d issued=%d)",
			b.ID, b.TotalQuantity, b.AvailableQuantity, b.IssuedQuantity)
	}
	return nil
}

// Checkout moves one copy from available to issued.
// Returns false without mutating when no copy is available.
func (b *Book) Checkout() bool {
	if b.AvailableQuantity <= 0 {
		return false
	}
	b.AvailableQuantity--
	b.IssuedQuantity++
	return true
}

// Checkin moves one copy from issued back to available.
// Returns false without mutating when no copy is out.
func (b *Book) Checkin() bool {
	if b.IssuedQuantity <= 0 {
		return false
	}
	b.IssuedQuantity--
	b.AvailableQuantity++
	return true
}

// Reconcile applies a new total quantity, recomputing availability so that
// copies currently out stay accounted for. Returns false when more copies are
// issued than the new total allows.
func (b *Book) Reconcile(newTotal int) bool {
	if newTotal < b.IssuedQuantity {
		return false
	}
	b.TotalQuantity = newTotal
	b.AvailableQuantity = newTotal - b.IssuedQuantity
	return true
}

// HasActiveLoans reports whether any copy of this book is currently out.
func (b *Book) HasActiveLoans() bool {
	return b.IssuedQuantity > 0
}
