package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/circulateapp/circulate-server/internal/domain"
	apperrors "github.com/circulateapp/circulate-server/internal/errors"
	"github.com/circulateapp/circulate-server/internal/normalize"
)

// CatalogStats summarizes the catalog for reporting.
type CatalogStats struct {
	Titles          int `json:"titles"`
	TotalCopies     int `json:"total_copies"`
	AvailableCopies int `json:"available_copies"`
	IssuedCopies    int `json:"issued_copies"`
}

// titleIdxKey builds the ordered title index key for a book. The sort key
// comes first so a prefix scan yields books in title order; the ID suffix
// keeps identical titles from colliding.
func titleIdxKey(book *domain.Book) []byte {
	return []byte(bookTitleIdxPrefix + normalize.SortKey(book.Title) + ":" + book.ID)
}

// CreateBook creates a new book with its title index entry.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := book.CheckCounters(); err != nil {
		return err
	}

	key := []byte(bookPrefix + book.ID)

	err := s.update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return ErrBookExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check book exists: %w", err)
		}

		if err := setJSON(txn, key, book); err != nil {
			return err
		}
		return txn.Set(titleIdxKey(book), []byte(book.ID))
	})
	if err != nil {
		return fmt.Errorf("create book: %w", err)
	}

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "book created",
			slog.String("id", book.ID),
			slog.String("title", book.Title),
			slog.Int("total_quantity", book.TotalQuantity),
		)
	}

	s.indexBook(ctx, book)
	return nil
}

// GetBook retrieves a book by ID.
func (s *Store) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var book domain.Book
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(bookPrefix+id), &book)
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return &book, nil
}

// UpdateBook updates an existing book, moving the title index entry if the
// title changed. Counter fields are taken from the stored record, never from
// the caller's copy; quantity changes go through SetBookQuantity, and
// circulation changes go through the loan transactions.
func (s *Store) UpdateBook(ctx context.Context, book *domain.Book) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(bookPrefix + book.ID)

	err := s.update(func(txn *badger.Txn) error {
		var oldBook domain.Book
		err := getJSON(txn, key, &oldBook)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrBookNotFound
		}
		if err != nil {
			return fmt.Errorf("get existing book: %w", err)
		}

		// A loan may have moved the counters since the caller read the
		// book; writing the caller's copy back would revert it.
		book.TotalQuantity = oldBook.TotalQuantity
		book.AvailableQuantity = oldBook.AvailableQuantity
		book.IssuedQuantity = oldBook.IssuedQuantity

		book.Touch()
		if err := setJSON(txn, key, book); err != nil {
			return err
		}

		if normalize.SortKey(oldBook.Title) != normalize.SortKey(book.Title) {
			if err := txn.Delete(titleIdxKey(&oldBook)); err != nil {
				return err
			}
			return txn.Set(titleIdxKey(book), []byte(book.ID))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrBookNotFound) {
			return err
		}
		return fmt.Errorf("update book: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("book updated", "id", book.ID, "title", book.Title)
	}

	s.indexBook(ctx, book)
	return nil
}

// SetBookQuantity reconciles a book's total quantity, adjusting availability
// to match. Fails when the new total is below the number of copies currently
// issued, since that would drive availability negative.
func (s *Store) SetBookQuantity(ctx context.Context, id string, newTotal int) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := []byte(bookPrefix + id)
	var book domain.Book

	err := s.update(func(txn *badger.Txn) error {
		book = domain.Book{}
		err := getJSON(txn, key, &book)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrBookNotFound
		}
		if err != nil {
			return fmt.Errorf("get book: %w", err)
		}

		if !book.Reconcile(newTotal) {
			return apperrors.ErrNegativeAvailability.WithDetails(map[string]any{
				"issued":    book.IssuedQuantity,
				"new_total": newTotal,
			})
		}
		book.Touch()
		return setJSON(txn, key, &book)
	})
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("book quantity reconciled",
			"id", book.ID,
			"total", book.TotalQuantity,
			"available", book.AvailableQuantity,
		)
	}
	return &book, nil
}

// DeleteBook deletes a book and its title index entry. A book with copies
// still out on loan cannot be deleted: the ledger references it.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(bookPrefix + id)

	err := s.update(func(txn *badger.Txn) error {
		var book domain.Book
		err := getJSON(txn, key, &book)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrBookNotFound
		}
		if err != nil {
			return fmt.Errorf("get book: %w", err)
		}

		if book.HasActiveLoans() {
			return apperrors.ErrActiveLoansExist.WithDetails(map[string]any{
				"issued": book.IssuedQuantity,
			})
		}

		if err := txn.Delete(titleIdxKey(&book)); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("book deleted", "id", id)
	}

	if s.searchIndexer != nil {
		if err := s.searchIndexer.DeleteBook(ctx, id); err != nil && s.logger != nil {
			s.logger.Warn("failed to remove book from search index", "id", id, "error", err)
		}
	}
	return nil
}

// ListBooks returns a page of books ordered by normalized title. An empty
// branch lists every branch.
func (s *Store) ListBooks(ctx context.Context, params PaginationParams, branch string) (*PaginatedResult[domain.Book], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params.Validate()

	startKey, err := DecodeCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	branch = normalize.Branch(branch)

	result := &PaginatedResult[domain.Book]{Items: make([]domain.Book, 0, params.Limit)}
	var lastKey string

	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(bookTitleIdxPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := []byte(bookTitleIdxPrefix)
		if startKey != "" {
			// Cursor is the last key of the previous page; resume just past it.
			seek = append([]byte(startKey), 0)
		}

		for it.Seek(seek); it.ValidForPrefix([]byte(bookTitleIdxPrefix)); it.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			var bookID string
			if err := it.Item().Value(func(val []byte) error {
				bookID = string(val)
				return nil
			}); err != nil {
				return err
			}

			var book domain.Book
			if err := getJSON(txn, []byte(bookPrefix+bookID), &book); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue // Index entry outlived the book; skip.
				}
				return err
			}

			if branch != "" && normalize.Branch(book.Branch) != branch {
				continue
			}

			if len(result.Items) >= params.Limit {
				result.HasMore = true
				result.NextCursor = EncodeCursor(lastKey)
				return nil
			}

			result.Items = append(result.Items, book)
			lastKey = string(it.Item().Key())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Stats aggregates catalog counters for reporting.
func (s *Store) Stats(ctx context.Context) (*CatalogStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := &CatalogStats{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(bookPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(bookPrefix)); it.ValidForPrefix([]byte(bookPrefix)); it.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			key := string(it.Item().Key())
			if strings.HasPrefix(key[len(bookPrefix):], "idx:") {
				continue
			}

			var book domain.Book
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &book)
			}); err != nil {
				return err
			}

			stats.Titles++
			stats.TotalCopies += book.TotalQuantity
			stats.AvailableCopies += book.AvailableQuantity
			stats.IssuedCopies += book.IssuedQuantity
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// indexBook pushes a book into the search index, logging failures instead
// of surfacing them: search is best-effort, the store is authoritative.
func (s *Store) indexBook(ctx context.Context, book *domain.Book) {
	if s.searchIndexer == nil {
		return
	}
	if err := s.searchIndexer.IndexBook(ctx, book); err != nil && s.logger != nil {
		s.logger.Warn("failed to index book for search", "id", book.ID, "error", err)
	}
}
