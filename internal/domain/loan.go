package domain

import "time"

// LoanStatus is the lifecycle state of a loan record.
type LoanStatus string

// Loan lifecycle states. The only transition is Issued -> Returned.
const (
	LoanIssued   LoanStatus = "issued"
	LoanReturned LoanStatus = "returned"
)

// Loan is one row of the issuance ledger. The ledger is append-only: a return
// is a status transition, never a deletion, so history stays queryable.
//
// Borrower and issuer names are denormalized at issue time so ledger listings
// do not fan out into directory lookups.
type Loan struct {
	Record
	BookID        string     `json:"book_id"`
	BookTitle     string     `json:"book_title"`
	StudentRollNo string     `json:"student_roll_no"`
	StudentName   string     `json:"student_name"`
	StudentBranch string     `json:"student_branch,omitempty"`
	IssuerID      string     `json:"issuer_id"`
	IssuerName    string     `json:"issuer_name"`
	IssueDate     time.Time  `json:"issue_date"`
	DueDate       time.Time  `json:"due_date"`
	ReturnDate    *time.Time `json:"return_date,omitempty"`
	Status        LoanStatus `json:"status"`
	RenewalCount  int        `json:"renewal_count"`
	// RecordedFine is set exactly once, at return time, in minor currency
	// units. While the loan is active the fine is derived, never stored.
	RecordedFine int64 `json:"recorded_fine"`
}

// IsActive reports whether the loan is still out.
func (l *Loan) IsActive() bool {
	return l.Status == LoanIssued
}

// OverdueAt reports whether the loan is past due at the given instant.
// Returned loans are never overdue.
func (l *Loan) OverdueAt(now time.Time) bool {
	return l.IsActive() && now.After(l.DueDate)
}

// Close transitions the loan to returned, recording the return instant and the
// finalized fine. Returns false if the loan is not active.
func (l *Loan) Close(returnedAt time.Time, fine int64) bool {
	if !l.IsActive() {
		return false
	}
	l.Status = LoanReturned
	l.ReturnDate = &returnedAt
	l.RecordedFine = fine
	l.Touch()
	return true
}

// Renew extends the due date and bumps the renewal counter.
// Returns false if the loan is not active.
func (l *Loan) Renew(newDue time.Time) bool {
	if !l.IsActive() {
		return false
	}
	l.DueDate = newDue
	l.RenewalCount++
	l.Touch()
	return true
}
