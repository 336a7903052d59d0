package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/circulateapp/circulate-server/internal/errors"
	"github.com/circulateapp/circulate-server/internal/search"
	"github.com/circulateapp/circulate-server/internal/store"
)

func TestCreateBook_Service(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	book, err := f.catalog.CreateBook(ctx, CreateBookInput{
		Title:    "Operating System Concepts",
		Branch:   "cse",
		Year:     2,
		Quantity: 3,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(book.ID, "book-"))
	assert.Equal(t, "CSE", book.Branch, "branch is canonicalized")
	assert.Equal(t, 3, book.AvailableQuantity)
	assert.Equal(t, 0, book.IssuedQuantity)
}

func TestCreateBook_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.catalog.CreateBook(context.Background(), CreateBookInput{
		Branch:   "CSE",
		Quantity: -1,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestUpdateBook_Partial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bookID := f.addBook(t, "Operating System Concepts", 3)

	desc := "Ninth edition"
	updated, err := f.catalog.UpdateBook(ctx, bookID, UpdateBookInput{Description: &desc})
	require.NoError(t, err)

	assert.Equal(t, "Operating System Concepts", updated.Title, "unset fields untouched")
	assert.Equal(t, "Ninth edition", updated.Description)
	assert.Equal(t, 3, updated.TotalQuantity)
}

func TestSetQuantity_Service(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bookID := f.addBook(t, "Operating System Concepts", 3)

	book, err := f.catalog.SetQuantity(ctx, bookID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, book.TotalQuantity)
	assert.Equal(t, 7, book.AvailableQuantity)

	_, err = f.catalog.SetQuantity(ctx, bookID, -1)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestDeleteBook_Service(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bookID := f.addBook(t, "Operating System Concepts", 1)

	require.NoError(t, f.catalog.DeleteBook(ctx, bookID))

	_, err := f.catalog.GetBook(ctx, bookID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestDeleteBook_WhileOnLoan(t *testing.T) {
	f := newFixture(t)
	bookID := f.addBook(t, "Operating System Concepts", 1)
	f.addStudent(t, "CSE-001")
	issuerID := f.addIssuer(t, true)
	f.issue(t, bookID, "CSE-001", issuerID)

	err := f.catalog.DeleteBook(context.Background(), bookID)
	assert.True(t, apperrors.Is(err, apperrors.ErrActiveLoansExist))
}

func TestSearchBooks_Service(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "Operating System Concepts", 3)
	f.addBook(t, "Signals and Systems", 2)

	params := search.DefaultParams()
	params.Query = "operating"
	result, err := f.catalog.SearchBooks(context.Background(), params)
	require.NoError(t, err)

	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "Operating System Concepts", result.Hits[0].Title)
	assert.Equal(t, 3, result.Hits[0].Available)
}

func TestReindexCatalog(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "Operating System Concepts", 3)
	f.addBook(t, "Signals and Systems", 2)

	count, err := f.catalog.ReindexCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestListBooks_Service(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "Zebra Algorithms", 1)
	f.addBook(t, "Automata Theory", 1)

	page, err := f.catalog.ListBooks(context.Background(), store.DefaultPaginationParams(), "")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Automata Theory", page.Items[0].Title)
}
