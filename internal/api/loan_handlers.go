package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/circulateapp/circulate-server/internal/domain"
	apperrors "github.com/circulateapp/circulate-server/internal/errors"
	"github.com/circulateapp/circulate-server/internal/service"
	"github.com/circulateapp/circulate-server/internal/store"
)

func (s *Server) registerLoanRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listLoans",
		Method:      http.MethodGet,
		Path:        "/api/v1/loans",
		Summary:     "List loans",
		Description: "Returns a page of ledger records matching the filters",
		Tags:        []string{"Loans"},
	}, s.handleListLoans)

	huma.Register(s.api, huma.Operation{
		OperationID: "issueLoan",
		Method:      http.MethodPost,
		Path:        "/api/v1/loans",
		Summary:     "Issue loan",
		Description: "Lends a book to a student at the circulation desk",
		Tags:        []string{"Loans"},
	}, s.handleIssueLoan)

	huma.Register(s.api, huma.Operation{
		OperationID: "getLoan",
		Method:      http.MethodGet,
		Path:        "/api/v1/loans/{id}",
		Summary:     "Get loan",
		Description: "Returns one ledger record with derived overdue state",
		Tags:        []string{"Loans"},
	}, s.handleGetLoan)

	huma.Register(s.api, huma.Operation{
		OperationID: "returnLoan",
		Method:      http.MethodPost,
		Path:        "/api/v1/loans/{id}/return",
		Summary:     "Return loan",
		Description: "Settles a loan and finalizes its fine",
		Tags:        []string{"Loans"},
	}, s.handleReturnLoan)

	huma.Register(s.api, huma.Operation{
		OperationID: "renewLoan",
		Method:      http.MethodPost,
		Path:        "/api/v1/loans/{id}/renew",
		Summary:     "Renew loan",
		Description: "Extends a loan's due date within the renewal limit",
		Tags:        []string{"Loans"},
	}, s.handleRenewLoan)
}

// === DTOs ===

// LoanResponse contains a ledger record annotated with derived state.
type LoanResponse struct {
	ID            string     `json:"id" doc:"Loan ID"`
	BookID        string     `json:"book_id" doc:"Book ID"`
	BookTitle     string     `json:"book_title" doc:"Book title at issue time"`
	StudentRollNo string     `json:"student_roll_no" doc:"Borrower roll number"`
	StudentName   string     `json:"student_name" doc:"Borrower name at issue time"`
	StudentBranch string     `json:"student_branch,omitempty" doc:"Borrower branch"`
	IssuerID      string     `json:"issuer_id" doc:"Issuer ID"`
	IssuerName    string     `json:"issuer_name" doc:"Issuer name at issue time"`
	IssueDate     time.Time  `json:"issue_date" doc:"When the book went out"`
	DueDate       time.Time  `json:"due_date" doc:"When the book is due back"`
	ReturnDate    *time.Time `json:"return_date,omitempty" doc:"When the book came back"`
	Status        string     `json:"status" doc:"Loan status: issued or returned"`
	RenewalCount  int        `json:"renewal_count" doc:"Times the loan was renewed"`
	RecordedFine  int64      `json:"recorded_fine" doc:"Fine frozen at return, minor currency units"`
	Overdue       bool       `json:"overdue" doc:"Whether the loan is past due"`
	AccruedFine   int64      `json:"accrued_fine" doc:"Running fine, minor currency units"`
}

func loanResponse(v *service.LoanView) LoanResponse {
	return LoanResponse{
		ID:            v.ID,
		BookID:        v.BookID,
		BookTitle:     v.BookTitle,
		StudentRollNo: v.StudentRollNo,
		StudentName:   v.StudentName,
		StudentBranch: v.StudentBranch,
		IssuerID:      v.IssuerID,
		IssuerName:    v.IssuerName,
		IssueDate:     v.IssueDate,
		DueDate:       v.DueDate,
		ReturnDate:    v.ReturnDate,
		Status:        string(v.Status),
		RenewalCount:  v.RenewalCount,
		RecordedFine:  v.RecordedFine,
		Overdue:       v.Overdue,
		AccruedFine:   v.AccruedFine,
	}
}

// LoanOutput wraps a loan response for Huma.
type LoanOutput struct {
	Body LoanResponse
}

// IssueLoanRequest is the request body for issuing a loan.
type IssueLoanRequest struct {
	BookID        string `json:"book_id" doc:"Book to lend"`
	StudentRollNo string `json:"student_roll_no" doc:"Borrower roll number"`
	IssuerID      string `json:"issuer_id" doc:"Acting issuer"`
}

// IssueLoanInput wraps the issue loan request for Huma.
type IssueLoanInput struct {
	Body IssueLoanRequest
}

// GetLoanInput contains parameters for getting a loan.
type GetLoanInput struct {
	ID string `path:"id" doc:"Loan ID"`
}

// SettleLoanRequest names the issuer performing a return or renewal.
type SettleLoanRequest struct {
	IssuerID string `json:"issuer_id" doc:"Acting issuer"`
}

// SettleLoanInput wraps a return or renew request for Huma.
type SettleLoanInput struct {
	ID   string `path:"id" doc:"Loan ID"`
	Body SettleLoanRequest
}

// ListLoansInput contains ledger listing filters.
type ListLoansInput struct {
	PaginationInput
	Status   string `query:"status" doc:"Filter by status: issued or returned"`
	RollNo   string `query:"roll_no" doc:"Filter by borrower roll number"`
	BookID   string `query:"book_id" doc:"Filter by book"`
	IssuerID string `query:"issuer_id" doc:"Filter by acting issuer"`
	Overdue  bool   `query:"overdue" doc:"Only active loans past due"`
}

// ListLoansResponse contains a page of ledger records.
type ListLoansResponse struct {
	Loans      []LoanResponse `json:"loans" doc:"Page of ledger records"`
	NextCursor string         `json:"next_cursor,omitempty" doc:"Cursor for the next page"`
	HasMore    bool           `json:"has_more" doc:"Whether another page exists"`
}

// ListLoansOutput wraps the list loans response for Huma.
type ListLoansOutput struct {
	Body ListLoansResponse
}

func loanPage(page *store.PaginatedResult[service.LoanView]) ListLoansResponse {
	loans := make([]LoanResponse, 0, len(page.Items))
	for i := range page.Items {
		loans = append(loans, loanResponse(&page.Items[i]))
	}
	return ListLoansResponse{
		Loans:      loans,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}
}

// parseLoanStatus converts a status query value, rejecting unknown states.
func parseLoanStatus(raw string) (domain.LoanStatus, error) {
	switch raw {
	case "":
		return "", nil
	case string(domain.LoanIssued):
		return domain.LoanIssued, nil
	case string(domain.LoanReturned):
		return domain.LoanReturned, nil
	default:
		return "", apperrors.Validationf("unknown loan status %q", raw)
	}
}

// === Handlers ===

func (s *Server) handleListLoans(ctx context.Context, input *ListLoansInput) (*ListLoansOutput, error) {
	status, err := parseLoanStatus(input.Status)
	if err != nil {
		return nil, err
	}

	page, err := s.services.Ledger.ListLoans(ctx, store.LoanQuery{
		Status:      status,
		RollNo:      input.RollNo,
		BookID:      input.BookID,
		IssuerID:    input.IssuerID,
		OverdueOnly: input.Overdue,
	}, input.params())
	if err != nil {
		return nil, err
	}

	return &ListLoansOutput{Body: loanPage(page)}, nil
}

func (s *Server) handleIssueLoan(ctx context.Context, input *IssueLoanInput) (*LoanOutput, error) {
	loan, err := s.services.Ledger.Issue(ctx, service.IssueInput{
		BookID:        input.Body.BookID,
		StudentRollNo: input.Body.StudentRollNo,
		IssuerID:      input.Body.IssuerID,
	})
	if err != nil {
		return nil, err
	}

	return &LoanOutput{Body: loanResponse(loan)}, nil
}

func (s *Server) handleGetLoan(ctx context.Context, input *GetLoanInput) (*LoanOutput, error) {
	loan, err := s.services.Ledger.GetLoan(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &LoanOutput{Body: loanResponse(loan)}, nil
}

func (s *Server) handleReturnLoan(ctx context.Context, input *SettleLoanInput) (*LoanOutput, error) {
	loan, err := s.services.Ledger.Return(ctx, input.ID, input.Body.IssuerID)
	if err != nil {
		return nil, err
	}

	return &LoanOutput{Body: loanResponse(loan)}, nil
}

func (s *Server) handleRenewLoan(ctx context.Context, input *SettleLoanInput) (*LoanOutput, error) {
	loan, err := s.services.Ledger.Renew(ctx, input.ID, input.Body.IssuerID)
	if err != nil {
		return nil, err
	}

	return &LoanOutput{Body: loanResponse(loan)}, nil
}
