package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/circulateapp/circulate-server/internal/policy"
	"github.com/circulateapp/circulate-server/internal/search"
	"github.com/circulateapp/circulate-server/internal/store"
	"github.com/circulateapp/circulate-server/internal/validation"
)

// fixture wires real services over a throwaway store and search index.
type fixture struct {
	store     *store.Store
	catalog   *CatalogService
	directory *DirectoryService
	ledger    *LedgerService
	reporting *ReportingService

	// now is the pinned clock; tests advance it directly.
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dataPath := t.TempDir()
	st, err := store.New(filepath.Join(dataPath, "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	idx, err := search.NewIndex(search.Options{DataPath: dataPath})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	st.SetSearchIndexer(idx)

	rules := policy.Rules{
		LoanPeriodDays:    30,
		RenewalPeriodDays: 30,
		FineRatePerDay:    5,
		MaxRenewals:       1,
		MaxActiveLoans:    5,
	}

	v := validation.New()
	f := &fixture{
		store: st,
		now:   time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}

	f.catalog = NewCatalogService(st, idx, v, nil)
	f.directory = NewDirectoryService(st, v, nil)
	f.ledger = NewLedgerService(st, f.directory, rules, v, nil)
	f.ledger.nowFn = func() time.Time { return f.now }
	f.reporting = NewReportingService(st, f.ledger, rules)
	f.reporting.nowFn = f.ledger.nowFn

	return f
}

func (f *fixture) addBook(t *testing.T, title string, quantity int) string {
	t.Helper()
	book, err := f.catalog.CreateBook(context.Background(), CreateBookInput{
		Title:    title,
		Branch:   "CSE",
		Quantity: quantity,
	})
	require.NoError(t, err)
	return book.ID
}

func (f *fixture) addStudent(t *testing.T, rollNo string) {
	t.Helper()
	_, err := f.directory.RegisterStudent(context.Background(), RegisterStudentInput{
		RollNo: rollNo,
		Name:   "Asha Verma",
		Branch: "CSE",
		Year:   2,
	})
	require.NoError(t, err)
}

func (f *fixture) addIssuer(t *testing.T, librarian bool) string {
	t.Helper()
	email := "desk@campus.edu"
	if !librarian {
		email = "guest@campus.edu"
	}
	issuer, err := f.directory.RegisterIssuer(context.Background(), RegisterIssuerInput{
		Name:      "R. Iyer",
		Email:     email,
		Librarian: librarian,
	})
	require.NoError(t, err)
	return issuer.ID
}

func (f *fixture) issue(t *testing.T, bookID, rollNo, issuerID string) *LoanView {
	t.Helper()
	loan, err := f.ledger.Issue(context.Background(), IssueInput{
		BookID:        bookID,
		StudentRollNo: rollNo,
		IssuerID:      issuerID,
	})
	require.NoError(t, err)
	return loan
}
