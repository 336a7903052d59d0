package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/circulateapp/circulate-server/internal/domain"
	"github.com/circulateapp/circulate-server/internal/policy"
)

// setupTestStore opens a store against a throwaway database.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func testRules() policy.Rules {
	return policy.Rules{
		LoanPeriodDays:    30,
		RenewalPeriodDays: 30,
		FineRatePerDay:    5,
		MaxRenewals:       1,
		MaxActiveLoans:    5,
	}
}

func testBook(id string, total int) *domain.Book {
	b := &domain.Book{
		Title:             "Operating System Concepts",
		Branch:            "CSE",
		Year:              2,
		Semester:          3,
		Price:             45000,
		TotalQuantity:     total,
		AvailableQuantity: total,
	}
	b.ID = id
	b.InitTimestamps()
	return b
}

func testStudent(rollNo string) *domain.Student {
	s := &domain.Student{
		RollNo: rollNo,
		Name:   "Asha Verma",
		Branch: "CSE",
		Year:   2,
	}
	s.ID = "stu_" + rollNo
	s.InitTimestamps()
	return s
}

func testIssuer() *domain.Issuer {
	i := &domain.Issuer{
		Name:      "R. Iyer",
		Email:     "r.iyer@campus.edu",
		Librarian: true,
	}
	i.ID = "iss_test"
	i.InitTimestamps()
	return i
}

func testTime() time.Time {
	return time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
}
