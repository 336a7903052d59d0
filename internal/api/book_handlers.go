package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/circulateapp/circulate-server/internal/domain"
	"github.com/circulateapp/circulate-server/internal/search"
	"github.com/circulateapp/circulate-server/internal/service"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns a page of the catalog ordered by title",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/search",
		Summary:     "Search books",
		Description: "Full-text catalog search with filters",
		Tags:        []string{"Books"},
	}, s.handleSearchBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "createBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/books",
		Summary:     "Create book",
		Description: "Adds a title to the catalog with all copies available",
		Tags:        []string{"Books"},
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Description: "Returns a catalog book by ID",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPatch,
		Path:        "/api/v1/books/{id}",
		Summary:     "Update book",
		Description: "Applies partial edits to a book's catalog details",
		Tags:        []string{"Books"},
	}, s.handleUpdateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "setBookQuantity",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}/quantity",
		Summary:     "Set book quantity",
		Description: "Reconciles the total number of copies for a book",
		Tags:        []string{"Books"},
	}, s.handleSetBookQuantity)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteBook",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{id}",
		Summary:     "Delete book",
		Description: "Removes a title; refused while copies are out on loan",
		Tags:        []string{"Books"},
	}, s.handleDeleteBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "reindexCatalog",
		Method:      http.MethodPost,
		Path:        "/api/v1/catalog/reindex",
		Summary:     "Reindex catalog",
		Description: "Rebuilds the search index from the store",
		Tags:        []string{"Books"},
	}, s.handleReindexCatalog)
}

// === DTOs ===

// BookResponse contains catalog book data in API responses.
type BookResponse struct {
	ID                string    `json:"id" doc:"Book ID"`
	Title             string    `json:"title" doc:"Book title"`
	Branch            string    `json:"branch" doc:"Department branch code"`
	Year              int       `json:"year,omitempty" doc:"Year of study"`
	Semester          int       `json:"semester,omitempty" doc:"Semester"`
	Price             int64     `json:"price,omitempty" doc:"Price in minor currency units"`
	Description       string    `json:"description,omitempty" doc:"Catalog description"`
	TotalQuantity     int       `json:"total_quantity" doc:"Total copies owned"`
	AvailableQuantity int       `json:"available_quantity" doc:"Copies on the shelf"`
	IssuedQuantity    int       `json:"issued_quantity" doc:"Copies out on loan"`
	CreatedAt         time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt         time.Time `json:"updated_at" doc:"Last update time"`
}

func bookResponse(b *domain.Book) BookResponse {
	return BookResponse{
		ID:                b.ID,
		Title:             b.Title,
		Branch:            b.Branch,
		Year:              b.Year,
		Semester:          b.Semester,
		Price:             b.Price,
		Description:       b.Description,
		TotalQuantity:     b.TotalQuantity,
		AvailableQuantity: b.AvailableQuantity,
		IssuedQuantity:    b.IssuedQuantity,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
}

// BookOutput wraps a book response for Huma.
type BookOutput struct {
	Body BookResponse
}

// CreateBookRequest is the request body for adding a title.
type CreateBookRequest struct {
	Title       string `json:"title" doc:"Book title"`
	Branch      string `json:"branch" doc:"Department branch code"`
	Year        int    `json:"year,omitempty" doc:"Year of study"`
	Semester    int    `json:"semester,omitempty" doc:"Semester"`
	Price       int64  `json:"price,omitempty" doc:"Price in minor currency units"`
	Description string `json:"description,omitempty" doc:"Catalog description"`
	Quantity    int    `json:"quantity,omitempty" doc:"Number of copies"`
}

// CreateBookInput wraps the create book request for Huma.
type CreateBookInput struct {
	Body CreateBookRequest
}

// GetBookInput contains parameters for getting a book.
type GetBookInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// UpdateBookRequest is the request body for partial catalog edits.
type UpdateBookRequest struct {
	Title       *string `json:"title,omitempty" doc:"Book title"`
	Branch      *string `json:"branch,omitempty" doc:"Department branch code"`
	Year        *int    `json:"year,omitempty" doc:"Year of study"`
	Semester    *int    `json:"semester,omitempty" doc:"Semester"`
	Price       *int64  `json:"price,omitempty" doc:"Price in minor currency units"`
	Description *string `json:"description,omitempty" doc:"Catalog description"`
}

// UpdateBookInput wraps the update book request for Huma.
type UpdateBookInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body UpdateBookRequest
}

// SetQuantityRequest is the request body for reconciling copy totals.
type SetQuantityRequest struct {
	Quantity int `json:"quantity" doc:"New total number of copies"`
}

// SetQuantityInput wraps the set quantity request for Huma.
type SetQuantityInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body SetQuantityRequest
}

// DeleteBookInput contains parameters for deleting a book.
type DeleteBookInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// ListBooksInput contains parameters for listing books.
type ListBooksInput struct {
	PaginationInput
	Branch string `query:"branch" doc:"Filter by branch code"`
}

// ListBooksResponse contains a page of catalog books.
type ListBooksResponse struct {
	Books      []BookResponse `json:"books" doc:"Page of books ordered by title"`
	NextCursor string         `json:"next_cursor,omitempty" doc:"Cursor for the next page"`
	HasMore    bool           `json:"has_more" doc:"Whether another page exists"`
}

// ListBooksOutput wraps the list books response for Huma.
type ListBooksOutput struct {
	Body ListBooksResponse
}

// SearchBooksInput contains full-text search parameters.
type SearchBooksInput struct {
	Query         string `query:"q" doc:"Search query"`
	Branch        string `query:"branch" doc:"Filter by branch code"`
	MinYear       int    `query:"min_year" doc:"Minimum year of study"`
	MaxYear       int    `query:"max_year" doc:"Maximum year of study"`
	AvailableOnly bool   `query:"available_only" doc:"Only books with a copy on the shelf"`
	Limit         int    `query:"limit" doc:"Maximum hits to return"`
	Offset        int    `query:"offset" doc:"Hits to skip"`
	SortBy        string `query:"sort_by" doc:"Sort order: relevance, title, or recent"`
	SortOrder     string `query:"sort_order" doc:"asc or desc"`
}

// SearchHit is a single catalog search result.
type SearchHit struct {
	ID         string            `json:"id" doc:"Book ID"`
	Score      float64           `json:"score" doc:"Relevance score"`
	Title      string            `json:"title" doc:"Book title"`
	Branch     string            `json:"branch,omitempty" doc:"Department branch code"`
	Year       int               `json:"year,omitempty" doc:"Year of study"`
	Available  int               `json:"available" doc:"Copies on the shelf"`
	Total      int               `json:"total" doc:"Total copies owned"`
	Highlights map[string]string `json:"highlights,omitempty" doc:"Match highlights by field"`
}

// SearchBooksResponse contains catalog search results.
type SearchBooksResponse struct {
	Query  string      `json:"query" doc:"The executed query"`
	Total  uint64      `json:"total" doc:"Total matching books"`
	TookMs int64       `json:"took_ms" doc:"Search duration in milliseconds"`
	Hits   []SearchHit `json:"hits" doc:"Matching books"`
}

// SearchBooksOutput wraps the search response for Huma.
type SearchBooksOutput struct {
	Body SearchBooksResponse
}

// ReindexResponse reports how many books were reindexed.
type ReindexResponse struct {
	Indexed int `json:"indexed" doc:"Number of books indexed"`
}

// ReindexOutput wraps the reindex response for Huma.
type ReindexOutput struct {
	Body ReindexResponse
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*ListBooksOutput, error) {
	page, err := s.services.Catalog.ListBooks(ctx, input.params(), input.Branch)
	if err != nil {
		return nil, err
	}

	books := make([]BookResponse, 0, len(page.Items))
	for i := range page.Items {
		books = append(books, bookResponse(&page.Items[i]))
	}

	return &ListBooksOutput{Body: ListBooksResponse{
		Books:      books,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}}, nil
}

func (s *Server) handleSearchBooks(ctx context.Context, input *SearchBooksInput) (*SearchBooksOutput, error) {
	params := search.DefaultParams()
	params.Query = input.Query
	params.Branch = input.Branch
	params.MinYear = input.MinYear
	params.MaxYear = input.MaxYear
	params.AvailableOnly = input.AvailableOnly
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	params.Offset = input.Offset
	if input.SortBy != "" {
		params.SortBy = input.SortBy
	}
	if input.SortOrder != "" {
		params.SortOrder = input.SortOrder
	}

	result, err := s.services.Catalog.SearchBooks(ctx, params)
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hits = append(hits, SearchHit{
			ID:         h.ID,
			Score:      h.Score,
			Title:      h.Title,
			Branch:     h.Branch,
			Year:       h.Year,
			Available:  h.Available,
			Total:      h.Total,
			Highlights: h.Highlights,
		})
	}

	return &SearchBooksOutput{Body: SearchBooksResponse{
		Query:  result.Query,
		Total:  result.Total,
		TookMs: result.TookMs,
		Hits:   hits,
	}}, nil
}

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	book, err := s.services.Catalog.CreateBook(ctx, service.CreateBookInput{
		Title:       input.Body.Title,
		Branch:      input.Body.Branch,
		Year:        input.Body.Year,
		Semester:    input.Body.Semester,
		Price:       input.Body.Price,
		Description: input.Body.Description,
		Quantity:    input.Body.Quantity,
	})
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: bookResponse(book)}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *GetBookInput) (*BookOutput, error) {
	book, err := s.services.Catalog.GetBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: bookResponse(book)}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*BookOutput, error) {
	book, err := s.services.Catalog.UpdateBook(ctx, input.ID, service.UpdateBookInput{
		Title:       input.Body.Title,
		Branch:      input.Body.Branch,
		Year:        input.Body.Year,
		Semester:    input.Body.Semester,
		Price:       input.Body.Price,
		Description: input.Body.Description,
	})
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: bookResponse(book)}, nil
}

func (s *Server) handleSetBookQuantity(ctx context.Context, input *SetQuantityInput) (*BookOutput, error) {
	book, err := s.services.Catalog.SetQuantity(ctx, input.ID, input.Body.Quantity)
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: bookResponse(book)}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *DeleteBookInput) (*MessageOutput, error) {
	if err := s.services.Catalog.DeleteBook(ctx, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Book deleted"}}, nil
}

func (s *Server) handleReindexCatalog(ctx context.Context, _ *struct{}) (*ReindexOutput, error) {
	count, err := s.services.Catalog.ReindexCatalog(ctx)
	if err != nil {
		return nil, err
	}

	return &ReindexOutput{Body: ReindexResponse{Indexed: count}}, nil
}
