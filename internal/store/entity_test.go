package store_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jthaw/cdrack/internal/catalog"
	"github.com/jthaw/cdrack/internal/errors"
	"github.com/jthaw/cdrack/internal/store"
)

type testEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func testEntities(s *store.Store) *store.Entity[testEntity] {
	return store.NewEntity(s, "test:", func(e *testEntity) string { return e.ID })
}

func TestEntity_PutAndGet(t *testing.T) {
	s := setupTestStore(t)
	entity := testEntities(s)
	ctx := context.Background()

	existed, err := entity.Put(ctx, &testEntity{ID: "1", Name: "Waterloo"})
	require.NoError(t, err)
	assert.False(t, existed)

	got, err := entity.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Waterloo", got.Name)
}

func TestEntity_PutOverwrites(t *testing.T) {
	s := setupTestStore(t)
	entity := testEntities(s)
	ctx := context.Background()

	_, err := entity.Put(ctx, &testEntity{ID: "1", Name: "first"})
	require.NoError(t, err)

	existed, err := entity.Put(ctx, &testEntity{ID: "1", Name: "second"})
	require.NoError(t, err)
	assert.True(t, existed)

	got, err := entity.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Name)
}

func TestEntity_PutEmptyKey(t *testing.T) {
	s := setupTestStore(t)

	_, err := testEntities(s).Put(context.Background(), &testEntity{Name: "orphan"})
	assert.ErrorIs(t, err, store.ErrEmptyKey)
}

func TestEntity_GetNotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := testEntities(s).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestEntity_BatchDeleteIsIdempotent(t *testing.T) {
	s := setupTestStore(t)
	entity := testEntities(s)
	ctx := context.Background()

	_, err := entity.Put(ctx, &testEntity{ID: "1"})
	require.NoError(t, err)

	require.NoError(t, entity.BatchDelete(ctx, []string{"1"}))
	require.NoError(t, entity.BatchDelete(ctx, []string{"1", "missing"}))

	_, err = entity.Get(ctx, "1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEntity_ScanSeesOnlyItsPrefix(t *testing.T) {
	s := setupTestStore(t)
	entity := testEntities(s)
	other := store.NewEntity(s, "other:", func(e *testEntity) string { return e.ID })
	ctx := context.Background()

	for i := range 3 {
		_, err := entity.Put(ctx, &testEntity{ID: fmt.Sprint(i)})
		require.NoError(t, err)
	}
	_, err := other.Put(ctx, &testEntity{ID: "x"})
	require.NoError(t, err)

	all, err := entity.Scan(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestEntity_ScanEmpty(t *testing.T) {
	s := setupTestStore(t)

	all, err := testEntities(s).Scan(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestEntity_ListStopsEarly(t *testing.T) {
	s := setupTestStore(t)
	entity := testEntities(s)
	ctx := context.Background()

	for i := range 5 {
		_, err := entity.Put(ctx, &testEntity{ID: fmt.Sprint(i)})
		require.NoError(t, err)
	}

	seen := 0
	for _, err := range entity.List(ctx) {
		require.NoError(t, err)
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestEntity_CanceledContext(t *testing.T) {
	s := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testEntities(s).Get(ctx, "1")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = testEntities(s).Put(ctx, &testEntity{ID: "1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEntity_BatchPutAndDelete(t *testing.T) {
	s := setupTestStore(t)
	entity := testEntities(s)
	ctx := context.Background()

	items := make([]*testEntity, 0, 60)
	ids := make([]string, 0, 60)
	for i := range 60 {
		id := fmt.Sprintf("%03d", i)
		items = append(items, &testEntity{ID: id})
		ids = append(ids, id)
	}

	require.NoError(t, entity.BatchPut(ctx, items))
	all, err := entity.Scan(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 60)

	require.NoError(t, entity.BatchDelete(ctx, ids[:50]))
	all, err = entity.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, all, 10)
	assert.Equal(t, "050", all[0].ID)
}

func TestBatchWriter_FlushesInChunks(t *testing.T) {
	s := setupTestStore(t)

	bw := s.NewBatchWriter(store.BatchSize)
	defer bw.Cancel()

	for i := range 60 {
		require.NoError(t, bw.Set([]byte(fmt.Sprintf("raw:%d", i)), []byte("{}")))
	}
	assert.Equal(t, 2, bw.Flushes())
	assert.Equal(t, 10, bw.Count())

	require.NoError(t, bw.Flush())
	assert.Equal(t, 3, bw.Flushes())
	assert.Equal(t, 0, bw.Count())
}

func TestStore_AlbumsKeyedByBarcode(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	album := &catalog.Album{Barcode: "5099750442227", Data: catalog.AlbumData{Title: "Abbey Road"}}
	_, err := s.Albums.Put(ctx, album)
	require.NoError(t, err)

	got, err := s.Albums.Get(ctx, "5099750442227")
	require.NoError(t, err)
	assert.Equal(t, "Abbey Road", got.Data.Title)
	assert.False(t, got.Data.Artwork.Present())
}

func TestStore_Ping(t *testing.T) {
	s, err := store.NewInMemory(nil)
	require.NoError(t, err)

	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())
	assert.Error(t, s.Ping(context.Background()))
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rack.db")
	ctx := context.Background()

	s, err := store.New(path, nil)
	require.NoError(t, err)
	_, err = s.Albums.Put(ctx, &catalog.Album{Barcode: "0724385522925", Data: catalog.AlbumData{Title: "OK Computer"}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := store.New(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.Albums.Get(ctx, "0724385522925")
	require.NoError(t, err)
	assert.Equal(t, "OK Computer", got.Data.Title)
}

func TestStore_CloseTwice(t *testing.T) {
	s, err := store.NewInMemory(nil)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
