package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/circulateapp/circulate-server/internal/errors"
)

func TestCreateBook(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	book := testBook("book-001", 3)
	require.NoError(t, s.CreateBook(ctx, book))

	retrieved, err := s.GetBook(ctx, "book-001")
	require.NoError(t, err)
	assert.Equal(t, book.Title, retrieved.Title)
	assert.Equal(t, 3, retrieved.TotalQuantity)
	assert.Equal(t, 3, retrieved.AvailableQuantity)
	assert.Equal(t, 0, retrieved.IssuedQuantity)
}

func TestCreateBook_Duplicate(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	book := testBook("book-001", 3)
	require.NoError(t, s.CreateBook(ctx, book))

	err := s.CreateBook(ctx, book)
	assert.ErrorIs(t, err, ErrBookExists)
}

func TestCreateBook_BadCounters(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	book := testBook("book-001", 3)
	book.AvailableQuantity = 2 // out of balance

	assert.Error(t, s.CreateBook(ctx, book))
}

func TestGetBook_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetBook(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestUpdateBook(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	book := testBook("book-001", 3)
	require.NoError(t, s.CreateBook(ctx, book))

	book.Title = "Modern Operating Systems"
	book.Description = "Fourth edition"
	require.NoError(t, s.UpdateBook(ctx, book))

	retrieved, err := s.GetBook(ctx, "book-001")
	require.NoError(t, err)
	assert.Equal(t, "Modern Operating Systems", retrieved.Title)
	assert.Equal(t, "Fourth edition", retrieved.Description)
}

func TestUpdateBook_PreservesCounters(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateBook(ctx, testBook("book-001", 2)))

	// Read the book, then let a loan move the counters before the edit lands.
	stale, err := s.GetBook(ctx, "book-001")
	require.NoError(t, err)
	issueTestLoan(t, s, "loan-1", "book-001", "CSE-001")

	stale.Description = "Second edition"
	require.NoError(t, s.UpdateBook(ctx, stale))

	book, err := s.GetBook(ctx, "book-001")
	require.NoError(t, err)
	assert.Equal(t, "Second edition", book.Description)
	assert.Equal(t, 1, book.IssuedQuantity, "edit must not revert circulation")
	assert.Equal(t, 1, book.AvailableQuantity)
	require.NoError(t, book.CheckCounters())

	// The return still finds its issued copy.
	_, err = s.ReturnLoan(ctx, "loan-1", testRules(), testTime().AddDate(0, 0, 5))
	require.NoError(t, err)
}

func TestUpdateBook_NotFound(t *testing.T) {
	s := setupTestStore(t)

	book := testBook("ghost", 1)
	assert.ErrorIs(t, s.UpdateBook(context.Background(), book), ErrBookNotFound)
}

func TestSetBookQuantity(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateBook(ctx, testBook("book-001", 3)))

	updated, err := s.SetBookQuantity(ctx, "book-001", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, updated.TotalQuantity)
	assert.Equal(t, 10, updated.AvailableQuantity)
	require.NoError(t, updated.CheckCounters())
}

func TestSetBookQuantity_BelowIssued(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateBook(ctx, testBook("book-001", 3)))
	require.NoError(t, s.Students.Create(ctx, "stu-1", testStudent("CSE-001")))

	_, err := s.IssueLoan(ctx, IssueParams{
		LoanID:  "loan-1",
		BookID:  "book-001",
		Student: testStudent("CSE-001"),
		Issuer:  testIssuer(),
	}, testRules(), testTime())
	require.NoError(t, err)

	// One copy is out; shrinking below it must fail.
	_, err = s.SetBookQuantity(ctx, "book-001", 0)
	assert.True(t, apperrors.Is(err, apperrors.ErrNegativeAvailability))

	// Shrinking to exactly the issued count is fine.
	updated, err := s.SetBookQuantity(ctx, "book-001", 1)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.AvailableQuantity)
	assert.Equal(t, 1, updated.IssuedQuantity)
}

func TestDeleteBook(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateBook(ctx, testBook("book-001", 3)))
	require.NoError(t, s.DeleteBook(ctx, "book-001"))

	_, err := s.GetBook(ctx, "book-001")
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestDeleteBook_ActiveLoans(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateBook(ctx, testBook("book-001", 3)))

	_, err := s.IssueLoan(ctx, IssueParams{
		LoanID:  "loan-1",
		BookID:  "book-001",
		Student: testStudent("CSE-001"),
		Issuer:  testIssuer(),
	}, testRules(), testTime())
	require.NoError(t, err)

	err = s.DeleteBook(ctx, "book-001")
	assert.True(t, apperrors.Is(err, apperrors.ErrActiveLoansExist))

	// Still retrievable.
	_, err = s.GetBook(ctx, "book-001")
	require.NoError(t, err)
}

func TestListBooks_OrderedByTitle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	titles := map[string]string{
		"book-001": "Zen of Databases",
		"book-002": "algorithms Unlocked",
		"book-003": "Modern Operating Systems",
	}
	for id, title := range titles {
		b := testBook(id, 1)
		b.Title = title
		require.NoError(t, s.CreateBook(ctx, b))
	}

	result, err := s.ListBooks(ctx, DefaultPaginationParams(), "")
	require.NoError(t, err)
	require.Len(t, result.Items, 3)
	assert.False(t, result.HasMore)

	// Case-insensitive title order.
	assert.Equal(t, "algorithms Unlocked", result.Items[0].Title)
	assert.Equal(t, "Modern Operating Systems", result.Items[1].Title)
	assert.Equal(t, "Zen of Databases", result.Items[2].Title)
}

func TestListBooks_Pagination(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for i := range 5 {
		b := testBook(fmt.Sprintf("book-%03d", i), 1)
		b.Title = fmt.Sprintf("Title %02d", i)
		require.NoError(t, s.CreateBook(ctx, b))
	}

	page1, err := s.ListBooks(ctx, PaginationParams{Limit: 2}, "")
	require.NoError(t, err)
	require.Len(t, page1.Items, 2)
	require.True(t, page1.HasMore)
	require.NotEmpty(t, page1.NextCursor)

	page2, err := s.ListBooks(ctx, PaginationParams{Limit: 2, Cursor: page1.NextCursor}, "")
	require.NoError(t, err)
	require.Len(t, page2.Items, 2)

	page3, err := s.ListBooks(ctx, PaginationParams{Limit: 2, Cursor: page2.NextCursor}, "")
	require.NoError(t, err)
	require.Len(t, page3.Items, 1)
	assert.False(t, page3.HasMore)

	// No overlaps across pages.
	seen := make(map[string]bool)
	for _, b := range page1.Items {
		seen[b.ID] = true
	}
	for _, b := range page2.Items {
		require.False(t, seen[b.ID])
		seen[b.ID] = true
	}
	for _, b := range page3.Items {
		require.False(t, seen[b.ID])
	}
}

func TestListBooks_BranchFilter(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	cse := testBook("book-001", 1)
	cse.Branch = "CSE"
	require.NoError(t, s.CreateBook(ctx, cse))

	ece := testBook("book-002", 1)
	ece.Branch = "ECE"
	ece.Title = "Signals and Systems"
	require.NoError(t, s.CreateBook(ctx, ece))

	result, err := s.ListBooks(ctx, DefaultPaginationParams(), "ece")
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "book-002", result.Items[0].ID)
}

func TestStats(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateBook(ctx, testBook("book-001", 3)))
	b2 := testBook("book-002", 2)
	b2.Title = "Signals and Systems"
	require.NoError(t, s.CreateBook(ctx, b2))

	_, err := s.IssueLoan(ctx, IssueParams{
		LoanID:  "loan-1",
		BookID:  "book-001",
		Student: testStudent("CSE-001"),
		Issuer:  testIssuer(),
	}, testRules(), testTime())
	require.NoError(t, err)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Titles)
	assert.Equal(t, 5, stats.TotalCopies)
	assert.Equal(t, 4, stats.AvailableCopies)
	assert.Equal(t, 1, stats.IssuedCopies)
}
