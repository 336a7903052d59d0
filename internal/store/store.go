// Package store persists the catalog and the ledger in a Badger key-value
// database. Every document is a JSON value under a typed key prefix;
// multi-document updates run inside a single Badger transaction, whose
// snapshot isolation is what keeps the inventory counters honest under
// concurrent circulation.
package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/circulateapp/circulate-server/internal/domain"
	"github.com/circulateapp/circulate-server/internal/normalize"
)

// SearchIndexer keeps the catalog search index in sync with store changes.
// Store uses this to update search without depending on its implementation.
type SearchIndexer interface {
	IndexBook(ctx context.Context, book *domain.Book) error
	DeleteBook(ctx context.Context, bookID string) error
}

// NoopSearchIndexer is a no-op implementation for testing.
type NoopSearchIndexer struct{}

// IndexBook is a no-op.
func (NoopSearchIndexer) IndexBook(context.Context, *domain.Book) error { return nil }

// DeleteBook is a no-op.
func (NoopSearchIndexer) DeleteBook(context.Context, string) error { return nil }

// NewNoopSearchIndexer creates a new no-op search indexer for testing.
func NewNoopSearchIndexer() SearchIndexer {
	return NoopSearchIndexer{}
}

// txnRetries is how many times a conflicting transaction is retried before
// the operation gives up with ErrConflict.
const txnRetries = 3

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// Search indexer for keeping search in sync with catalog changes.
	// Set via SetSearchIndexer after store creation to avoid circular dependencies.
	searchIndexer SearchIndexer

	// Generic entities for directory data.
	Students *Entity[domain.Student]
	Issuers  *Entity[domain.Issuer]
}

// New creates a new Store instance with the given database path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	store := &Store{
		db:     db,
		logger: logger,
	}

	store.initStudents()
	store.initIssuers()

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return store, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// SetSearchIndexer sets the search indexer for keeping search in sync.
// Set after store creation to avoid circular dependencies (the store must
// exist before the search service can be created).
func (s *Store) SetSearchIndexer(indexer SearchIndexer) {
	s.searchIndexer = indexer
}

// update runs fn in a read-write transaction, retrying a bounded number of
// times when the commit loses a snapshot conflict. Badger aborts the losing
// transaction wholesale, so fn must be safe to re-run from scratch.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := range txnRetries {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		// Jitter spreads out writers that conflicted on the same keys.
		backoff := time.Duration(attempt+1) * 5 * time.Millisecond
		time.Sleep(backoff + rand.N(5*time.Millisecond))
	}
	return fmt.Errorf("%w: %w", ErrConflict, err)
}

// Transaction helpers.

// getJSON reads a key within a transaction and unmarshals it into dest.
// Returns badger.ErrKeyNotFound unchanged so callers can translate it.
func getJSON(txn *badger.Txn, key []byte, dest any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dest)
	})
}

// setJSON marshals v and writes it under key within a transaction.
func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	return txn.Set(key, data)
}

// exists checks if a key exists.
func (s *Store) exists(key []byte) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// initStudents initializes the Students entity on the store.
// Roll numbers are unique and looked up case-insensitively.
func (s *Store) initStudents() {
	s.Students = NewEntity[domain.Student](s, studentPrefix).
		WithIndexTransform("rollno",
			func(st *domain.Student) []string {
				return []string{normalize.Fold(st.RollNo)}
			},
			normalize.Fold,
		)
}

// initIssuers initializes the Issuers entity on the store.
// Uses case-insensitive email indexing.
func (s *Store) initIssuers() {
	s.Issuers = NewEntity[domain.Issuer](s, issuerPrefix).
		WithIndexTransform("email",
			func(i *domain.Issuer) []string {
				return []string{normalize.Fold(i.Email)}
			},
			normalize.Fold,
		)
}
