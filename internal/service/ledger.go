package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/circulateapp/circulate-server/internal/domain"
	apperrors "github.com/circulateapp/circulate-server/internal/errors"
	"github.com/circulateapp/circulate-server/internal/id"
	"github.com/circulateapp/circulate-server/internal/policy"
	"github.com/circulateapp/circulate-server/internal/store"
	"github.com/circulateapp/circulate-server/internal/validation"
)

// LedgerService runs the circulation desk: issuing, returning, and renewing
// loans under the campus lending rules.
type LedgerService struct {
	store     *store.Store
	directory *DirectoryService
	rules     policy.Rules
	validator *validation.Validator
	logger    *slog.Logger

	// nowFn supplies the clock; tests pin it.
	nowFn func() time.Time
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(st *store.Store, dir *DirectoryService, rules policy.Rules, v *validation.Validator, logger *slog.Logger) *LedgerService {
	return &LedgerService{
		store:     st,
		directory: dir,
		rules:     rules,
		validator: v,
		logger:    logger,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}

// IssueInput is the payload for lending a book.
type IssueInput struct {
	BookID        string `json:"book_id" validate:"required"`
	StudentRollNo string `json:"student_roll_no" validate:"required"`
	IssuerID      string `json:"issuer_id" validate:"required"`
}

// LoanView is a ledger record annotated with state derived at read time.
// The stored record never carries a running fine; it is computed against
// the clock on every read and frozen only at return.
type LoanView struct {
	domain.Loan
	Overdue     bool  `json:"overdue"`
	AccruedFine int64 `json:"accrued_fine"`
}

// Rules exposes the lending policy in effect.
func (s *LedgerService) Rules() policy.Rules {
	return s.rules
}

// annotate derives the overdue flag and the running fine for a loan.
func (s *LedgerService) annotate(loan *domain.Loan, now time.Time) LoanView {
	view := LoanView{Loan: *loan}
	if loan.IsActive() {
		view.Overdue = loan.OverdueAt(now)
		view.AccruedFine = s.rules.Fine(loan.DueDate, now)
	} else {
		view.AccruedFine = loan.RecordedFine
	}
	return view
}

// authorizeIssuer resolves the acting issuer and checks they may operate
// the desk. Unknown issuers and non-librarian staff are both rejected.
func (s *LedgerService) authorizeIssuer(ctx context.Context, issuerID string) (*domain.Issuer, error) {
	issuer, err := s.directory.GetIssuer(ctx, issuerID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotAuthorized("issuer is not registered")
		}
		return nil, err
	}
	if !issuer.Librarian {
		return nil, apperrors.NotAuthorized("issuer is not allowed to operate the circulation desk")
	}
	return issuer, nil
}

// Issue lends a book to a student. The availability, duplicate-hold, and
// borrow-limit checks all happen inside one store transaction, so two desks
// racing for the last copy produce exactly one loan.
func (s *LedgerService) Issue(ctx context.Context, input IssueInput) (*LoanView, error) {
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	issuer, err := s.authorizeIssuer(ctx, input.IssuerID)
	if err != nil {
		return nil, err
	}

	student, err := s.directory.GetStudentByRoll(ctx, input.StudentRollNo)
	if err != nil {
		return nil, err
	}

	loanID, err := id.NewLoanID()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to generate loan ID")
	}

	now := s.nowFn()
	loan, err := s.store.IssueLoan(ctx, store.IssueParams{
		LoanID:  loanID,
		BookID:  input.BookID,
		Student: student,
		Issuer:  issuer,
	}, s.rules, now)
	if err != nil {
		return nil, s.translateLedgerError(err)
	}

	view := s.annotate(loan, now)
	return &view, nil
}

// Return settles a loan and finalizes its fine.
func (s *LedgerService) Return(ctx context.Context, loanID, issuerID string) (*LoanView, error) {
	if _, err := s.authorizeIssuer(ctx, issuerID); err != nil {
		return nil, err
	}

	now := s.nowFn()
	loan, err := s.store.ReturnLoan(ctx, loanID, s.rules, now)
	if err != nil {
		return nil, s.translateLedgerError(err)
	}

	view := s.annotate(loan, now)
	return &view, nil
}

// Renew extends a loan's due date within the renewal limit. The extension
// is anchored on the current due date, so renewing early doesn't shorten
// the window.
func (s *LedgerService) Renew(ctx context.Context, loanID, issuerID string) (*LoanView, error) {
	if _, err := s.authorizeIssuer(ctx, issuerID); err != nil {
		return nil, err
	}

	now := s.nowFn()
	loan, err := s.store.RenewLoan(ctx, loanID, s.rules, now)
	if err != nil {
		return nil, s.translateLedgerError(err)
	}

	view := s.annotate(loan, now)
	return &view, nil
}

// GetLoan returns one ledger record with derived overdue state.
func (s *LedgerService) GetLoan(ctx context.Context, loanID string) (*LoanView, error) {
	loan, err := s.store.GetLoan(ctx, loanID)
	if err != nil {
		return nil, s.translateLedgerError(err)
	}

	view := s.annotate(loan, s.nowFn())
	return &view, nil
}

// ListLoans returns a page of ledger records matching the query, each
// annotated with derived overdue state.
func (s *LedgerService) ListLoans(ctx context.Context, query store.LoanQuery, params store.PaginationParams) (*store.PaginatedResult[LoanView], error) {
	now := s.nowFn()
	if query.AsOf.IsZero() {
		query.AsOf = now
	}

	page, err := s.store.ListLoans(ctx, query, params)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list loans")
	}

	result := &store.PaginatedResult[LoanView]{
		Items:      make([]LoanView, 0, len(page.Items)),
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}
	for i := range page.Items {
		result.Items = append(result.Items, s.annotate(&page.Items[i], query.AsOf))
	}
	return result, nil
}

// StudentHistory returns a student's ledger, optionally filtered by status.
// Active loans come first, newest issue first; returned loans follow,
// newest return first. The ledger for one student stays small, so the sort
// and page run in memory over the per-student index.
func (s *LedgerService) StudentHistory(ctx context.Context, rollNo string, status domain.LoanStatus, params store.PaginationParams) (*store.PaginatedResult[LoanView], error) {
	// Verify the student exists so an empty page means "no loans", not
	// "no such student".
	if _, err := s.directory.GetStudentByRoll(ctx, rollNo); err != nil {
		return nil, err
	}

	loans, err := s.store.StudentLoans(ctx, rollNo)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to read student ledger")
	}

	if status != "" {
		filtered := loans[:0]
		for _, loan := range loans {
			if loan.Status == status {
				filtered = append(filtered, loan)
			}
		}
		loans = filtered
	}

	sort.SliceStable(loans, func(i, j int) bool {
		a, b := &loans[i], &loans[j]
		if a.IsActive() != b.IsActive() {
			return a.IsActive()
		}
		if a.IsActive() {
			return a.IssueDate.After(b.IssueDate)
		}
		return a.ReturnDate.After(*b.ReturnDate)
	})

	params.Validate()
	offset, err := decodeOffsetCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if offset > len(loans) {
		offset = len(loans)
	}

	end := offset + params.Limit
	if end > len(loans) {
		end = len(loans)
	}

	now := s.nowFn()
	result := &store.PaginatedResult[LoanView]{
		Items:   make([]LoanView, 0, end-offset),
		HasMore: end < len(loans),
	}
	for i := offset; i < end; i++ {
		result.Items = append(result.Items, s.annotate(&loans[i], now))
	}
	if result.HasMore {
		result.NextCursor = store.EncodeCursor(strconv.Itoa(end))
	}
	return result, nil
}

// decodeOffsetCursor converts a history cursor back into a slice offset.
func decodeOffsetCursor(cursor string) (int, error) {
	raw, err := store.DecodeCursor(cursor)
	if err != nil || raw == "" {
		return 0, err
	}
	offset, err := strconv.Atoi(raw)
	if err != nil || offset < 0 {
		return 0, apperrors.Validation("invalid cursor")
	}
	return offset, nil
}

// translateLedgerError maps store sentinels to domain errors, passing
// through domain errors the transaction already produced.
func (s *LedgerService) translateLedgerError(err error) error {
	switch {
	case errors.Is(err, store.ErrBookNotFound):
		return apperrors.NotFound("book not found")
	case errors.Is(err, store.ErrLoanNotFound):
		return apperrors.NotFound("loan not found")
	case errors.Is(err, store.ErrConflict):
		return apperrors.Conflict("the ledger is contended, retry the request")
	}
	var domainErr *apperrors.Error
	if apperrors.As(err, &domainErr) {
		return domainErr
	}
	return apperrors.Wrap(err, apperrors.CodeInternal, "ledger operation failed")
}
