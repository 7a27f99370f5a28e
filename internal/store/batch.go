package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// BatchSize is the number of writes committed together by batch operations.
const BatchSize = 25

// BatchWriter provides bulk write operations using BadgerDB's WriteBatch.
// Writes are committed every maxSize operations and on Flush.
type BatchWriter struct {
	store   *Store
	batch   *badger.WriteBatch
	maxSize int
	count   int
	flushes int
}

// NewBatchWriter creates a new batch writer that will auto-flush when maxSize is reached.
func (s *Store) NewBatchWriter(maxSize int) *BatchWriter {
	if maxSize < 1 {
		maxSize = BatchSize
	}
	return &BatchWriter{
		store:   s,
		batch:   s.db.NewWriteBatch(),
		maxSize: maxSize,
	}
}

// Set adds a write to the batch.
func (b *BatchWriter) Set(key, value []byte) error {
	if err := b.batch.Set(key, value); err != nil {
		return fmt.Errorf("batch set: %w", err)
	}
	return b.added()
}

// Delete adds a deletion to the batch.
func (b *BatchWriter) Delete(key []byte) error {
	if err := b.batch.Delete(key); err != nil {
		return fmt.Errorf("batch delete: %w", err)
	}
	return b.added()
}

func (b *BatchWriter) added() error {
	b.count++
	if b.count >= b.maxSize {
		if err := b.Flush(); err != nil {
			return fmt.Errorf("auto flush: %w", err)
		}
	}
	return nil
}

// Flush commits all pending writes in the batch.
func (b *BatchWriter) Flush() error {
	if b.count == 0 {
		return nil
	}

	if err := b.batch.Flush(); err != nil {
		return fmt.Errorf("flush batch: %w", err)
	}
	b.flushes++

	if b.store.logger != nil {
		b.store.logger.LogAttrs(context.Background(), slog.LevelDebug, "batch flushed",
			slog.Int("count", b.count),
		)
	}

	b.count = 0
	b.batch = b.store.db.NewWriteBatch()

	return nil
}

// Cancel discards all pending writes in the batch.
func (b *BatchWriter) Cancel() {
	b.batch.Cancel()
	b.count = 0
}

// Count returns the number of operations in the current batch.
func (b *BatchWriter) Count() int {
	return b.count
}

// Flushes returns how many chunks have been committed.
func (b *BatchWriter) Flushes() int {
	return b.flushes
}
