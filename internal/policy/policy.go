// Package policy implements the circulation rules as pure functions over
// domain values. It holds no storage and no clock: callers pass the
// documents and the instant, which keeps every rule deterministic and
// trivially testable.
package policy

import (
	"time"

	"github.com/circulateapp/circulate-server/internal/config"
	"github.com/circulateapp/circulate-server/internal/domain"
	"github.com/circulateapp/circulate-server/internal/errors"
)

// Rules holds the policy knobs for one campus.
type Rules struct {
	// LoanPeriodDays is the borrowing window applied at issue time.
	LoanPeriodDays int
	// RenewalPeriodDays is the extension granted per renewal, measured
	// from the loan's current due date.
	RenewalPeriodDays int
	// FineRatePerDay is the overdue fine in minor currency units per day.
	FineRatePerDay int64
	// MaxRenewals caps renewals per loan.
	MaxRenewals int
	// MaxActiveLoans caps concurrent active loans per student.
	MaxActiveLoans int
}

// FromConfig builds Rules from the lending configuration.
func FromConfig(cfg config.LendingConfig) Rules {
	return Rules{
		LoanPeriodDays:    cfg.LoanPeriodDays,
		RenewalPeriodDays: cfg.RenewalPeriodDays,
		FineRatePerDay:    cfg.FineRatePerDay,
		MaxRenewals:       cfg.MaxRenewals,
		MaxActiveLoans:    cfg.MaxActiveLoans,
	}
}

// DueDate returns the due date for a loan issued at the given instant.
func (r Rules) DueDate(issuedAt time.Time) time.Time {
	return issuedAt.AddDate(0, 0, r.LoanPeriodDays)
}

// RenewedDueDate returns the new due date after a renewal. The extension is
// anchored on the current due date, not on when the renewal happened, so
// renewing early does not shorten the total window.
func (r Rules) RenewedDueDate(currentDue time.Time) time.Time {
	return currentDue.AddDate(0, 0, r.RenewalPeriodDays)
}

// Fine returns the overdue fine for a loan due at due and settled at
// returnedAt. A loan returned on or before its due instant owes nothing;
// past it, each started day is charged in full.
func (r Rules) Fine(due, returnedAt time.Time) int64 {
	if !returnedAt.After(due) {
		return 0
	}
	late := returnedAt.Sub(due)
	days := int64(late / (24 * time.Hour))
	if late%(24*time.Hour) != 0 {
		days++
	}
	return days * r.FineRatePerDay
}

// ValidateIssue checks whether a book may be issued to the student whose
// borrower state is given. It reports the first violated rule; availability
// is checked last so a duplicate or over-limit request gets the more
// specific error even when no copies remain.
func (r Rules) ValidateIssue(book *domain.Book, state *domain.BorrowerState) error {
	if state.Holds(book.ID) {
		return errors.ErrDuplicateLoan.WithDetails(map[string]any{
			"book_id": book.ID,
			"loan_id": state.ActiveBooks[book.ID],
		})
	}
	if state.ActiveCount() >= r.MaxActiveLoans {
		return errors.BorrowLimitExceeded("student already has the maximum number of active loans").WithDetails(map[string]any{
			"active_loans": state.ActiveCount(),
			"limit":        r.MaxActiveLoans,
		})
	}
	if book.AvailableQuantity <= 0 {
		return errors.InsufficientCopies("no copies of this book are available")
	}
	return nil
}

// ValidateReturn checks whether a loan may be settled.
func (r Rules) ValidateReturn(loan *domain.Loan) error {
	if !loan.IsActive() {
		return errors.LoanNotActive("loan has already been returned")
	}
	return nil
}

// ValidateRenew checks whether a loan may be renewed.
func (r Rules) ValidateRenew(loan *domain.Loan) error {
	if !loan.IsActive() {
		return errors.LoanNotActive("loan has already been returned")
	}
	if loan.RenewalCount >= r.MaxRenewals {
		return errors.RenewalLimitReached("loan has reached its renewal limit").WithDetails(map[string]any{
			"renewals": loan.RenewalCount,
			"limit":    r.MaxRenewals,
		})
	}
	return nil
}
