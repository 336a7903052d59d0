package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerReportRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSummaryReport",
		Method:      http.MethodGet,
		Path:        "/api/v1/reports/summary",
		Summary:     "Get summary report",
		Description: "Returns a point-in-time snapshot of the catalog and ledger",
		Tags:        []string{"Reports"},
	}, s.handleSummaryReport)

	huma.Register(s.api, huma.Operation{
		OperationID: "getOverdueReport",
		Method:      http.MethodGet,
		Path:        "/api/v1/reports/overdue",
		Summary:     "Get overdue report",
		Description: "Lists every active loan past due with its accrued fine",
		Tags:        []string{"Reports"},
	}, s.handleOverdueReport)
}

// === DTOs ===

// CatalogStatsResponse aggregates the catalog for reporting.
type CatalogStatsResponse struct {
	Titles          int `json:"titles" doc:"Distinct titles in the catalog"`
	TotalCopies     int `json:"total_copies" doc:"Copies owned across all titles"`
	AvailableCopies int `json:"available_copies" doc:"Copies on the shelf"`
	IssuedCopies    int `json:"issued_copies" doc:"Copies out on loan"`
}

// LedgerStatsResponse aggregates the ledger for reporting.
type LedgerStatsResponse struct {
	ActiveLoans      int   `json:"active_loans" doc:"Loans currently out"`
	OverdueLoans     int   `json:"overdue_loans" doc:"Active loans past due"`
	ReturnedLoans    int   `json:"returned_loans" doc:"Settled loans"`
	OutstandingFines int64 `json:"outstanding_fines" doc:"Fines accruing on overdue loans, minor currency units"`
	CollectedFines   int64 `json:"collected_fines" doc:"Fines recorded at return, minor currency units"`
}

// SummaryReportResponse is the combined catalog and ledger snapshot.
type SummaryReportResponse struct {
	GeneratedAt time.Time            `json:"generated_at" doc:"Snapshot instant"`
	Catalog     CatalogStatsResponse `json:"catalog" doc:"Catalog aggregates"`
	Ledger      LedgerStatsResponse  `json:"ledger" doc:"Ledger aggregates"`
}

// SummaryReportOutput wraps the summary report for Huma.
type SummaryReportOutput struct {
	Body SummaryReportResponse
}

// OverdueReportInput contains parameters for the overdue listing.
type OverdueReportInput struct {
	PaginationInput
}

// === Handlers ===

func (s *Server) handleSummaryReport(ctx context.Context, _ *struct{}) (*SummaryReportOutput, error) {
	report, err := s.services.Reporting.Summary(ctx)
	if err != nil {
		return nil, err
	}

	return &SummaryReportOutput{Body: SummaryReportResponse{
		GeneratedAt: report.GeneratedAt,
		Catalog: CatalogStatsResponse{
			Titles:          report.Catalog.Titles,
			TotalCopies:     report.Catalog.TotalCopies,
			AvailableCopies: report.Catalog.AvailableCopies,
			IssuedCopies:    report.Catalog.IssuedCopies,
		},
		Ledger: LedgerStatsResponse{
			ActiveLoans:      report.Ledger.ActiveLoans,
			OverdueLoans:     report.Ledger.OverdueLoans,
			ReturnedLoans:    report.Ledger.ReturnedLoans,
			OutstandingFines: report.Ledger.OutstandingFines,
			CollectedFines:   report.Ledger.CollectedFines,
		},
	}}, nil
}

func (s *Server) handleOverdueReport(ctx context.Context, input *OverdueReportInput) (*ListLoansOutput, error) {
	page, err := s.services.Reporting.OverdueLoans(ctx, input.params())
	if err != nil {
		return nil, err
	}

	return &ListLoansOutput{Body: loanPage(page)}, nil
}
