// Package service orchestrates the catalog, ledger, and directory operations
// on top of the store, translating storage errors into domain errors.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/circulateapp/circulate-server/internal/domain"
	apperrors "github.com/circulateapp/circulate-server/internal/errors"
	"github.com/circulateapp/circulate-server/internal/id"
	"github.com/circulateapp/circulate-server/internal/normalize"
	"github.com/circulateapp/circulate-server/internal/search"
	"github.com/circulateapp/circulate-server/internal/store"
	"github.com/circulateapp/circulate-server/internal/validation"
)

// CatalogService manages the book catalog and its search index.
type CatalogService struct {
	store     *store.Store
	search    *search.Index
	validator *validation.Validator
	logger    *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(st *store.Store, idx *search.Index, v *validation.Validator, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:     st,
		search:    idx,
		validator: v,
		logger:    logger,
	}
}

// CreateBookInput is the payload for adding a title to the catalog.
type CreateBookInput struct {
	Title       string `json:"title" validate:"required,min=1,max=500"`
	Branch      string `json:"branch" validate:"required,min=1,max=50"`
	Year        int    `json:"year,omitempty" validate:"gte=0,lte=10"`
	Semester    int    `json:"semester,omitempty" validate:"gte=0,lte=20"`
	Price       int64  `json:"price,omitempty" validate:"gte=0"`
	Description string `json:"description,omitempty" validate:"max=5000"`
	Quantity    int    `json:"quantity" validate:"gte=0"`
}

// UpdateBookInput carries partial catalog edits. Nil fields are untouched.
// Quantity is deliberately absent: totals change only through SetQuantity.
type UpdateBookInput struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=500"`
	Branch      *string `json:"branch,omitempty" validate:"omitempty,min=1,max=50"`
	Year        *int    `json:"year,omitempty" validate:"omitempty,gte=0,lte=10"`
	Semester    *int    `json:"semester,omitempty" validate:"omitempty,gte=0,lte=20"`
	Price       *int64  `json:"price,omitempty" validate:"omitempty,gte=0"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
}

// CreateBook adds a new title to the catalog. All copies start available.
func (s *CatalogService) CreateBook(ctx context.Context, input CreateBookInput) (*domain.Book, error) {
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	book := &domain.Book{
		Title:             input.Title,
		Branch:            normalize.Branch(input.Branch),
		Year:              input.Year,
		Semester:          input.Semester,
		Price:             input.Price,
		Description:       input.Description,
		TotalQuantity:     input.Quantity,
		AvailableQuantity: input.Quantity,
	}
	bookID, err := id.NewBookID()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to generate book ID")
	}
	book.ID = bookID
	book.InitTimestamps()

	if err := s.store.CreateBook(ctx, book); err != nil {
		if errors.Is(err, store.ErrBookExists) {
			return nil, apperrors.AlreadyExists("book already exists")
		}
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to create book")
	}

	return book, nil
}

// GetBook returns a catalog book by ID.
func (s *CatalogService) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if errors.Is(err, store.ErrBookNotFound) {
		return nil, apperrors.NotFoundf("book %s not found", bookID)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get book")
	}
	return book, nil
}

// UpdateBook applies partial edits to a book's catalog details.
func (s *CatalogService) UpdateBook(ctx context.Context, bookID string, input UpdateBookInput) (*domain.Book, error) {
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	book, err := s.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		book.Title = *input.Title
	}
	if input.Branch != nil {
		book.Branch = normalize.Branch(*input.Branch)
	}
	if input.Year != nil {
		book.Year = *input.Year
	}
	if input.Semester != nil {
		book.Semester = *input.Semester
	}
	if input.Price != nil {
		book.Price = *input.Price
	}
	if input.Description != nil {
		book.Description = *input.Description
	}

	if err := s.store.UpdateBook(ctx, book); err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			return nil, apperrors.NotFoundf("book %s not found", bookID)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to update book")
	}

	return book, nil
}

// SetQuantity reconciles the total number of copies for a book.
func (s *CatalogService) SetQuantity(ctx context.Context, bookID string, total int) (*domain.Book, error) {
	if total < 0 {
		return nil, apperrors.Validation("quantity cannot be negative")
	}

	book, err := s.store.SetBookQuantity(ctx, bookID, total)
	if err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			return nil, apperrors.NotFoundf("book %s not found", bookID)
		}
		var domainErr *apperrors.Error
		if apperrors.As(err, &domainErr) {
			return nil, domainErr
		}
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to set book quantity")
	}

	s.reindex(ctx, book)
	return book, nil
}

// DeleteBook removes a title from the catalog. Refused while copies are out
// on loan.
func (s *CatalogService) DeleteBook(ctx context.Context, bookID string) error {
	err := s.store.DeleteBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			return apperrors.NotFoundf("book %s not found", bookID)
		}
		var domainErr *apperrors.Error
		if apperrors.As(err, &domainErr) {
			return domainErr
		}
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to delete book")
	}
	return nil
}

// ListBooks returns a page of the catalog ordered by title.
func (s *CatalogService) ListBooks(ctx context.Context, params store.PaginationParams, branch string) (*store.PaginatedResult[domain.Book], error) {
	result, err := s.store.ListBooks(ctx, params, branch)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list books")
	}
	return result, nil
}

// SearchBooks runs a full-text catalog search.
func (s *CatalogService) SearchBooks(ctx context.Context, params search.Params) (*search.Result, error) {
	result, err := s.search.Search(ctx, params)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "search failed")
	}
	return result, nil
}

// ReindexCatalog rebuilds the search index from the store. Used at startup
// and after mapping changes.
func (s *CatalogService) ReindexCatalog(ctx context.Context) (int, error) {
	var books []*domain.Book
	params := store.DefaultPaginationParams()
	for {
		page, err := s.store.ListBooks(ctx, params, "")
		if err != nil {
			return 0, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list books for reindex")
		}
		for i := range page.Items {
			books = append(books, &page.Items[i])
		}
		if !page.HasMore {
			break
		}
		params.Cursor = page.NextCursor
	}

	if err := s.search.IndexBooks(books); err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeInternal, "failed to index books")
	}

	if s.logger != nil {
		s.logger.Info("catalog reindexed", "books", len(books))
	}
	return len(books), nil
}

// reindex refreshes one book in the search index, best effort.
func (s *CatalogService) reindex(ctx context.Context, book *domain.Book) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexBook(ctx, book); err != nil && s.logger != nil {
		s.logger.Warn("failed to reindex book", "id", book.ID, "error", err)
	}
}
