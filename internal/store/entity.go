package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Entity provides generic CRUD operations for directory-style domain types
// that don't need bespoke transactional logic.
type Entity[T any] struct {
	store   *Store
	prefix  string
	indexes []Index[T]
}

// Index defines a secondary index on an entity. Index keys are unique:
// creating or updating an entity whose index key is already claimed fails
// with ErrAlreadyExists.
type Index[T any] struct {
	name            string
	keyGen          func(*T) []string
	lookupTransform func(string) string // Optional transformation for lookups
}

// NewEntity creates a new Entity instance for type T.
func NewEntity[T any](s *Store, prefix string) *Entity[T] {
	return &Entity[T]{
		store:  s,
		prefix: prefix,
	}
}

// WithIndex adds a secondary index to the entity.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{name: name, keyGen: keyGen})
	return e
}

// WithIndexTransform adds a secondary index with lookup transformation.
// The transform is applied to search values before lookup, enabling
// case-insensitive or normalized searches.
func (e *Entity[T]) WithIndexTransform(name string, keyGen func(*T) []string, lookupTransform func(string) string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{
		name:            name,
		keyGen:          keyGen,
		lookupTransform: lookupTransform,
	})
	return e
}

// checkIndexConflicts fails with ErrAlreadyExists if any index key for
// entity is already taken. Keys present in skip are ignored.
func (e *Entity[T]) checkIndexConflicts(txn *badger.Txn, entity *T, skip map[string]bool) error {
	for _, idx := range e.indexes {
		for _, indexKey := range idx.keyGen(entity) {
			if skip[idx.name+":"+indexKey] {
				continue
			}
			key := buildIndexKey(e.prefix, idx.name, indexKey)
			_, err := txn.Get(key)
			releaseKey(key)
			if err == nil {
				return fmt.Errorf("index %s conflict on key %s: %w", idx.name, indexKey, ErrAlreadyExists)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("check index key: %w", err)
			}
		}
	}
	return nil
}

// writeIndexes points every index key for entity at id.
func (e *Entity[T]) writeIndexes(txn *badger.Txn, entity *T, id string) error {
	for _, idx := range e.indexes {
		for _, key := range idx.keyGen(entity) {
			if err := txn.Set(indexKey(e.prefix, idx.name, key), []byte(id)); err != nil {
				return fmt.Errorf("set index key: %w", err)
			}
		}
	}
	return nil
}

// clearIndexes removes every index key for entity.
func (e *Entity[T]) clearIndexes(txn *badger.Txn, entity *T) error {
	for _, idx := range e.indexes {
		for _, key := range idx.keyGen(entity) {
			if err := txn.Delete(indexKey(e.prefix, idx.name, key)); err != nil {
				return fmt.Errorf("delete index key: %w", err)
			}
		}
	}
	return nil
}

// Create creates a new entity with the given ID.
// Returns ErrAlreadyExists if the ID or any index key is already taken.
func (e *Entity[T]) Create(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshal entity: %w", err)
	}

	return e.store.update(func(txn *badger.Txn) error {
		// Fresh key: Badger references it until the commit.
		key := []byte(e.prefix + id)

		_, err := txn.Get(key)
		if err == nil {
			return ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check existing key: %w", err)
		}

		if err := e.checkIndexConflicts(txn, entity, nil); err != nil {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set key: %w", err)
		}
		return e.writeIndexes(txn, entity, id)
	})
}

// Get retrieves an entity by ID.
// Returns ErrNotFound if the entity does not exist.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entity T
	err := e.store.db.View(func(txn *badger.Txn) error {
		key := buildKey(e.prefix, id)
		defer releaseKey(key)
		err := getJSON(txn, key, &entity)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// GetByIndex retrieves an entity by secondary index value.
// The index's lookup transform, if any, is applied to the value first.
func (e *Entity[T]) GetByIndex(ctx context.Context, indexName, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, idx := range e.indexes {
		if idx.name == indexName && idx.lookupTransform != nil {
			value = idx.lookupTransform(value)
			break
		}
	}

	var id string
	err := e.store.db.View(func(txn *badger.Txn) error {
		key := buildIndexKey(e.prefix, indexName, value)
		defer releaseKey(key)

		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return e.Get(ctx, id)
}

// Update updates an existing entity, moving index keys as needed.
// Returns ErrNotFound if the entity does not exist.
func (e *Entity[T]) Update(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshal entity: %w", err)
	}

	return e.store.update(func(txn *badger.Txn) error {
		key := []byte(e.prefix + id)

		var oldEntity T
		err := getJSON(txn, key, &oldEntity)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get existing key: %w", err)
		}

		// Old index keys may be reclaimed by the new entity.
		oldKeys := make(map[string]bool)
		for _, idx := range e.indexes {
			for _, indexKey := range idx.keyGen(&oldEntity) {
				oldKeys[idx.name+":"+indexKey] = true
			}
		}

		if err := e.checkIndexConflicts(txn, entity, oldKeys); err != nil {
			return err
		}
		if err := e.clearIndexes(txn, &oldEntity); err != nil {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set key: %w", err)
		}
		return e.writeIndexes(txn, entity, id)
	})
}

// Delete deletes an entity by ID. Idempotent: deleting a missing entity
// is not an error.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.store.update(func(txn *badger.Txn) error {
		key := []byte(e.prefix + id)

		var entity T
		err := getJSON(txn, key, &entity)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get key: %w", err)
		}

		if err := e.clearIndexes(txn, &entity); err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("delete key: %w", err)
		}
		return nil
	})
}

// List returns an iterator over all entities.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		e.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(e.prefix)
			opts.PrefetchValues = true

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek([]byte(e.prefix)); it.ValidForPrefix([]byte(e.prefix)); it.Next() {
				if ctx.Err() != nil {
					yield(nil, ctx.Err())
					return ctx.Err()
				}

				// Skip index keys.
				key := string(it.Item().Key())
				if strings.HasPrefix(key[len(e.prefix):], "idx:") {
					continue
				}

				var entity T
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &entity)
				})
				if err != nil {
					yield(nil, err)
					return err
				}

				if !yield(&entity, nil) {
					return nil // Consumer stopped early
				}
			}

			return nil
		})
	}
}
