package service

import (
	"context"
	"time"

	apperrors "github.com/circulateapp/circulate-server/internal/errors"
	"github.com/circulateapp/circulate-server/internal/policy"
	"github.com/circulateapp/circulate-server/internal/store"
)

// ReportingService answers the read-only questions the library office asks:
// how much stock is out, who is late, what is owed.
type ReportingService struct {
	store  *store.Store
	ledger *LedgerService
	rules  policy.Rules

	nowFn func() time.Time
}

// NewReportingService creates a new reporting service.
func NewReportingService(st *store.Store, ledger *LedgerService, rules policy.Rules) *ReportingService {
	return &ReportingService{
		store:  st,
		ledger: ledger,
		rules:  rules,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SummaryReport is the combined catalog and ledger snapshot.
type SummaryReport struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Catalog     store.CatalogStats `json:"catalog"`
	Ledger      store.LedgerStats  `json:"ledger"`
}

// Summary builds a point-in-time snapshot of the whole subsystem.
func (s *ReportingService) Summary(ctx context.Context) (*SummaryReport, error) {
	now := s.nowFn()

	catalog, err := s.store.Stats(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to aggregate catalog")
	}

	ledger, err := s.store.LedgerStats(ctx, s.rules, now)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to aggregate ledger")
	}

	return &SummaryReport{
		GeneratedAt: now,
		Catalog:     *catalog,
		Ledger:      *ledger,
	}, nil
}

// OverdueLoans lists every active loan past due right now, with the fine
// each has accrued so far.
func (s *ReportingService) OverdueLoans(ctx context.Context, params store.PaginationParams) (*store.PaginatedResult[LoanView], error) {
	return s.ledger.ListLoans(ctx, store.LoanQuery{
		OverdueOnly: true,
		AsOf:        s.nowFn(),
	}, params)
}
