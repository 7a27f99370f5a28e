package store

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Entity provides generic key-value operations for one domain type stored
// under a key prefix. The primary key of a value is derived by keyOf.
type Entity[T any] struct {
	store  *Store
	prefix string
	keyOf  func(*T) string
}

// NewEntity creates a new Entity instance for type T.
func NewEntity[T any](s *Store, prefix string, keyOf func(*T) string) *Entity[T] {
	return &Entity[T]{
		store:  s,
		prefix: prefix,
		keyOf:  keyOf,
	}
}

// Get retrieves an entity by ID.
// Returns ErrNotFound if the entity does not exist.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := buildKey(e.prefix, id)
	defer releaseKey(key)

	var entity T
	err := e.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get key: %w", err)
		}

		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &entity); err != nil {
				return fmt.Errorf("failed to unmarshal entity: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return &entity, nil
}

// Put writes an entity under its key, replacing any previous value.
// It reports whether a value already existed under that key.
func (e *Entity[T]) Put(ctx context.Context, entity *T) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	id := e.keyOf(entity)
	if id == "" {
		return false, ErrEmptyKey
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return false, fmt.Errorf("failed to marshal entity: %w", err)
	}

	var existed bool
	key := ownedKey(e.prefix, id)
	err = e.store.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		switch {
		case err == nil:
			existed = true
		case !errors.Is(err, badger.ErrKeyNotFound):
			return fmt.Errorf("failed to check existing key: %w", err)
		}

		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("failed to set key: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	return existed, nil
}

// Ping reports whether the underlying store is usable.
func (e *Entity[T]) Ping(ctx context.Context) error {
	return e.store.Ping(ctx)
}

// List returns an iterator over all entities in key order.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		prefix := []byte(e.prefix)
		stopped := false

		err := e.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			opts.PrefetchValues = true

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				if err := ctx.Err(); err != nil {
					return err
				}

				var entity T
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &entity)
				})
				if err != nil {
					return fmt.Errorf("failed to unmarshal %s: %w", it.Item().Key(), err)
				}

				if !yield(&entity, nil) {
					stopped = true
					return nil
				}
			}
			return nil
		})

		if err != nil && !stopped {
			yield(nil, err)
		}
	}
}

// Scan collects every entity. Callers see the full set; iteration happens
// in a single read transaction.
func (e *Entity[T]) Scan(ctx context.Context) ([]T, error) {
	out := make([]T, 0)
	for entity, err := range e.List(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, *entity)
	}
	return out, nil
}

// BatchPut writes entities in chunks of BatchSize.
func (e *Entity[T]) BatchPut(ctx context.Context, entities []*T) error {
	bw := e.store.NewBatchWriter(BatchSize)
	defer bw.Cancel()

	for _, entity := range entities {
		if err := ctx.Err(); err != nil {
			return err
		}

		id := e.keyOf(entity)
		if id == "" {
			return ErrEmptyKey
		}
		data, err := json.Marshal(entity)
		if err != nil {
			return fmt.Errorf("failed to marshal entity: %w", err)
		}
		if err := bw.Set(ownedKey(e.prefix, id), data); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// BatchDelete deletes the given IDs in chunks of BatchSize.
func (e *Entity[T]) BatchDelete(ctx context.Context, ids []string) error {
	bw := e.store.NewBatchWriter(BatchSize)
	defer bw.Cancel()

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := bw.Delete(ownedKey(e.prefix, id)); err != nil {
			return err
		}
	}

	return bw.Flush()
}
