package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/circulateapp/circulate-server/internal/domain"
	apperrors "github.com/circulateapp/circulate-server/internal/errors"
	"github.com/circulateapp/circulate-server/internal/normalize"
	"github.com/circulateapp/circulate-server/internal/policy"
)

// IssueParams carries everything an issue transaction needs besides the
// book and borrower state, which are loaded inside the transaction so the
// commit conflicts with any concurrent writer touching them.
type IssueParams struct {
	LoanID  string
	BookID  string
	Student *domain.Student
	Issuer  *domain.Issuer
}

// LoanQuery filters ledger listings.
type LoanQuery struct {
	Status   domain.LoanStatus // "" matches both states
	RollNo   string            // "" matches all students
	BookID   string            // "" matches all books
	IssuerID string            // "" matches all issuers
	// OverdueOnly keeps only active loans past due at AsOf.
	OverdueOnly bool
	AsOf        time.Time
}

// LedgerStats aggregates the ledger for reporting. Outstanding fines are
// derived from overdue active loans at the given instant; collected fines
// are the ones recorded at return time.
type LedgerStats struct {
	ActiveLoans      int   `json:"active_loans"`
	OverdueLoans     int   `json:"overdue_loans"`
	ReturnedLoans    int   `json:"returned_loans"`
	OutstandingFines int64 `json:"outstanding_fines"`
	CollectedFines   int64 `json:"collected_fines"`
}

// borrowerKey builds the borrower state key for a roll number. Folded so
// the same student can't hold two states under case variants.
func borrowerKey(rollNo string) []byte {
	return []byte(borrowerPrefix + normalize.Fold(rollNo))
}

// loadBorrowerState reads a student's borrower state within a transaction,
// returning a fresh empty state when none exists yet.
func loadBorrowerState(txn *badger.Txn, rollNo string) (*domain.BorrowerState, error) {
	state := domain.NewBorrowerState(rollNo)
	err := getJSON(txn, borrowerKey(rollNo), state)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.NewBorrowerState(rollNo), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get borrower state: %w", err)
	}
	return state, nil
}

// IssueLoan atomically checks the lending rules, decrements availability,
// appends a ledger record, and marks the book held by the student. The
// whole sequence runs in one transaction: two concurrent issues of the
// last copy conflict on the book document, and the loser retries against
// the new state, where the rules reject it.
func (s *Store) IssueLoan(ctx context.Context, params IssueParams, rules policy.Rules, now time.Time) (*domain.Loan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bookKey := []byte(bookPrefix + params.BookID)
	var loan *domain.Loan

	err := s.update(func(txn *badger.Txn) error {
		// Rebuilt on every attempt; a retried transaction starts from a
		// fresh snapshot.
		var book domain.Book
		err := getJSON(txn, bookKey, &book)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrBookNotFound
		}
		if err != nil {
			return fmt.Errorf("get book: %w", err)
		}

		state, err := loadBorrowerState(txn, params.Student.RollNo)
		if err != nil {
			return err
		}

		if err := rules.ValidateIssue(&book, state); err != nil {
			return err
		}

		if !book.Checkout() {
			return apperrors.InsufficientCopies("no copies of this book are available")
		}
		if err := book.CheckCounters(); err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "inventory counters out of balance")
		}
		book.Touch()

		loan = &domain.Loan{
			BookID:        book.ID,
			BookTitle:     book.Title,
			StudentRollNo: params.Student.RollNo,
			StudentName:   params.Student.Name,
			StudentBranch: params.Student.Branch,
			IssuerID:      params.Issuer.ID,
			IssuerName:    params.Issuer.Name,
			IssueDate:     now,
			DueDate:       rules.DueDate(now),
			Status:        domain.LoanIssued,
		}
		loan.ID = params.LoanID
		loan.InitTimestamps()

		state.Borrow(book.ID, loan.ID)

		if err := setJSON(txn, bookKey, &book); err != nil {
			return err
		}
		if err := setJSON(txn, []byte(loanPrefix+loan.ID), loan); err != nil {
			return err
		}
		if err := setJSON(txn, borrowerKey(state.RollNo), state); err != nil {
			return err
		}
		if err := txn.Set(studentIdxKey(loan), []byte(loan.ID)); err != nil {
			return err
		}
		return txn.Set([]byte(loanActiveIdxPrefix+loan.ID), []byte(loan.ID))
	})
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "loan issued",
			slog.String("loan_id", loan.ID),
			slog.String("book_id", loan.BookID),
			slog.String("student", loan.StudentRollNo),
			slog.Time("due_date", loan.DueDate),
		)
	}
	return loan, nil
}

// ReturnLoan atomically settles a loan: finalizes the fine, closes the
// ledger record, restores availability, and releases the student's hold.
func (s *Store) ReturnLoan(ctx context.Context, loanID string, rules policy.Rules, now time.Time) (*domain.Loan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loanKey := []byte(loanPrefix + loanID)
	var loan domain.Loan

	err := s.update(func(txn *badger.Txn) error {
		loan = domain.Loan{}
		err := getJSON(txn, loanKey, &loan)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrLoanNotFound
		}
		if err != nil {
			return fmt.Errorf("get loan: %w", err)
		}

		if err := rules.ValidateReturn(&loan); err != nil {
			return err
		}

		fine := rules.Fine(loan.DueDate, now)
		if !loan.Close(now, fine) {
			return apperrors.LoanNotActive("loan has already been returned")
		}

		var book domain.Book
		bookKey := []byte(bookPrefix + loan.BookID)
		err = getJSON(txn, bookKey, &book)
		if errors.Is(err, badger.ErrKeyNotFound) {
			// The delete guard makes this unreachable; fail loudly if it
			// ever happens rather than corrupt counters.
			return apperrors.Internal("book referenced by active loan is missing")
		}
		if err != nil {
			return fmt.Errorf("get book: %w", err)
		}

		if !book.Checkin() {
			return apperrors.Internal("book has no issued copies to return")
		}
		if err := book.CheckCounters(); err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "inventory counters out of balance")
		}
		book.Touch()

		state, err := loadBorrowerState(txn, loan.StudentRollNo)
		if err != nil {
			return err
		}
		state.Release(loan.BookID)

		if err := setJSON(txn, loanKey, &loan); err != nil {
			return err
		}
		if err := setJSON(txn, bookKey, &book); err != nil {
			return err
		}
		if err := setJSON(txn, borrowerKey(state.RollNo), state); err != nil {
			return err
		}
		return txn.Delete([]byte(loanActiveIdxPrefix + loan.ID))
	})
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "loan returned",
			slog.String("loan_id", loan.ID),
			slog.String("book_id", loan.BookID),
			slog.String("student", loan.StudentRollNo),
			slog.Int64("fine", loan.RecordedFine),
		)
	}
	return &loan, nil
}

// RenewLoan extends a loan's due date within the renewal limit.
func (s *Store) RenewLoan(ctx context.Context, loanID string, rules policy.Rules, now time.Time) (*domain.Loan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loanKey := []byte(loanPrefix + loanID)
	var loan domain.Loan

	err := s.update(func(txn *badger.Txn) error {
		loan = domain.Loan{}
		err := getJSON(txn, loanKey, &loan)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrLoanNotFound
		}
		if err != nil {
			return fmt.Errorf("get loan: %w", err)
		}

		if err := rules.ValidateRenew(&loan); err != nil {
			return err
		}
		if !loan.Renew(rules.RenewedDueDate(loan.DueDate)) {
			return apperrors.LoanNotActive("loan has already been returned")
		}
		return setJSON(txn, loanKey, &loan)
	})
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("loan renewed",
			"loan_id", loan.ID,
			"renewals", loan.RenewalCount,
			"due_date", loan.DueDate,
		)
	}
	return &loan, nil
}

// GetLoan retrieves a loan by ID.
func (s *Store) GetLoan(ctx context.Context, id string) (*domain.Loan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var loan domain.Loan
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(loanPrefix+id), &loan)
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("get loan: %w", err)
	}
	return &loan, nil
}

// GetBorrowerState returns a student's current holds. A student with no
// circulation history gets an empty state.
func (s *Store) GetBorrowerState(ctx context.Context, rollNo string) (*domain.BorrowerState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var state *domain.BorrowerState
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		state, err = loadBorrowerState(txn, rollNo)
		return err
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// matches reports whether a loan satisfies the query.
func (q LoanQuery) matches(loan *domain.Loan) bool {
	if q.Status != "" && loan.Status != q.Status {
		return false
	}
	if q.RollNo != "" && normalize.Fold(loan.StudentRollNo) != normalize.Fold(q.RollNo) {
		return false
	}
	if q.BookID != "" && loan.BookID != q.BookID {
		return false
	}
	if q.IssuerID != "" && loan.IssuerID != q.IssuerID {
		return false
	}
	if q.OverdueOnly && !loan.OverdueAt(q.AsOf) {
		return false
	}
	return true
}

// activeOnly reports whether the query matches active loans exclusively,
// so the scan can walk the active-loan index instead of the whole ledger.
func (q LoanQuery) activeOnly() bool {
	return q.OverdueOnly || q.Status == domain.LoanIssued
}

// ListLoans returns a page of ledger records matching the query. When the
// query names a student the scan walks that student's index; active-only
// queries walk the active-loan index; otherwise it walks the whole ledger
// in key order.
func (s *Store) ListLoans(ctx context.Context, query LoanQuery, params PaginationParams) (*PaginatedResult[domain.Loan], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params.Validate()

	startKey, err := DecodeCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	scanPrefix := loanPrefix
	indexed := false
	switch {
	case query.RollNo != "":
		scanPrefix = loanStudentIdxPrefix + normalize.Fold(query.RollNo) + ":"
		indexed = true
	case query.activeOnly():
		scanPrefix = loanActiveIdxPrefix
		indexed = true
	}

	result := &PaginatedResult[domain.Loan]{Items: make([]domain.Loan, 0, params.Limit)}
	var lastKey string

	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(scanPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := []byte(scanPrefix)
		if startKey != "" {
			seek = append([]byte(startKey), 0)
		}

		for it.Seek(seek); it.ValidForPrefix([]byte(scanPrefix)); it.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			key := string(it.Item().Key())
			if !indexed && strings.HasPrefix(key[len(loanPrefix):], "idx:") {
				continue
			}

			var loan domain.Loan
			if indexed {
				var loanID string
				if err := it.Item().Value(func(val []byte) error {
					loanID = string(val)
					return nil
				}); err != nil {
					return err
				}
				if err := getJSON(txn, []byte(loanPrefix+loanID), &loan); err != nil {
					if errors.Is(err, badger.ErrKeyNotFound) {
						continue
					}
					return err
				}
			} else {
				if err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &loan)
				}); err != nil {
					return err
				}
			}

			if !query.matches(&loan) {
				continue
			}

			if len(result.Items) >= params.Limit {
				result.HasMore = true
				result.NextCursor = EncodeCursor(lastKey)
				return nil
			}

			result.Items = append(result.Items, loan)
			lastKey = key
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// StudentLoans returns a student's entire ledger via the per-student index.
// One student's ledger stays small for their whole enrollment, so callers
// sort and page in memory.
func (s *Store) StudentLoans(ctx context.Context, rollNo string) ([]domain.Loan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := loanStudentIdxPrefix + normalize.Fold(rollNo) + ":"
	var loans []domain.Loan

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			var loanID string
			if err := it.Item().Value(func(val []byte) error {
				loanID = string(val)
				return nil
			}); err != nil {
				return err
			}

			var loan domain.Loan
			if err := getJSON(txn, []byte(loanPrefix+loanID), &loan); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return err
			}
			loans = append(loans, loan)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loans, nil
}

// LedgerStats aggregates the whole ledger at the given instant.
func (s *Store) LedgerStats(ctx context.Context, rules policy.Rules, now time.Time) (*LedgerStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := &LedgerStats{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(loanPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(loanPrefix)); it.ValidForPrefix([]byte(loanPrefix)); it.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			key := string(it.Item().Key())
			if strings.HasPrefix(key[len(loanPrefix):], "idx:") {
				continue
			}

			var loan domain.Loan
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &loan)
			}); err != nil {
				return err
			}

			switch {
			case loan.IsActive():
				stats.ActiveLoans++
				if loan.OverdueAt(now) {
					stats.OverdueLoans++
					stats.OutstandingFines += rules.Fine(loan.DueDate, now)
				}
			default:
				stats.ReturnedLoans++
				stats.CollectedFines += loan.RecordedFine
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// studentIdxKey builds the per-student ledger index key for a loan.
func studentIdxKey(loan *domain.Loan) []byte {
	return []byte(loanStudentIdxPrefix + normalize.Fold(loan.StudentRollNo) + ":" + loan.ID)
}
