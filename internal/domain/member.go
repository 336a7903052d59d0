package domain

// Student is a borrower record from the campus directory. The lending paths
// treat it as read-only reference data keyed by roll number.
type Student struct {
	Record
	RollNo string `json:"roll_no"`
	Name   string `json:"name"`
	Branch string `json:"branch,omitempty"`
	Year   int    `json:"year,omitempty"`
}

// Issuer is a teacher or librarian allowed to operate the circulation desk.
// Only issuers with Librarian set may perform mutating ledger operations.
type Issuer struct {
	Record
	Name      string `json:"name"`
	Email     string `json:"email"`
	Librarian bool   `json:"librarian"`
}

// BorrowerState tracks a student's active loans as one document so issue and
// return transactions can read-modify-write it atomically. Keeping the count
// and the active book set together makes the duplicate-loan and borrow-limit
// checks O(1) and race-free under snapshot isolation.
type BorrowerState struct {
	RollNo string `json:"roll_no"`
	// ActiveBooks maps bookID -> loanID for every active loan.
	ActiveBooks map[string]string `json:"active_books"`
}

// NewBorrowerState returns an empty state for a student.
func NewBorrowerState(rollNo string) *BorrowerState {
	return &BorrowerState{
		RollNo:      rollNo,
		ActiveBooks: make(map[string]string),
	}
}

// ActiveCount returns the number of active loans.
func (s *BorrowerState) ActiveCount() int {
	return len(s.ActiveBooks)
}

// Holds reports whether the student already has an active loan for the book.
func (s *BorrowerState) Holds(bookID string) bool {
	_, ok := s.ActiveBooks[bookID]
	return ok
}

// Borrow records an active loan for the book.
func (s *BorrowerState) Borrow(bookID, loanID string) {
	if s.ActiveBooks == nil {
		s.ActiveBooks = make(map[string]string)
	}
	s.ActiveBooks[bookID] = loanID
}

// Release removes the active loan for the book.
func (s *BorrowerState) Release(bookID string) {
	delete(s.ActiveBooks, bookID)
}
