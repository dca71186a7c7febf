package sqlengine

import (
	"context"
	"os"
	"testing"

	"github.com/apache/arrow/go/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/madesroches/micromegas-sub003/internal/objectstore"
	"github.com/madesroches/micromegas-sub003/internal/partition"
	"github.com/madesroches/micromegas-sub003/internal/recordbuilder"
)

// countingStore wraps a LocalStore and counts Get calls, so the test
// can tell whether a second rows() call hit the cache instead of
// re-fetching.
type countingStore struct {
	*objectstore.LocalStore
	gets int
}

func (s *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.gets++
	return s.LocalStore.Get(ctx, key)
}

func writeFixturePartition(t *testing.T, dir string) string {
	t.Helper()
	schema := recordbuilder.LogSchema()
	b := recordbuilder.New(memory.NewGoAllocator(), schema)
	require.NoError(t, b.AppendRow(map[string]any{
		"time": int64(1000), "process_id": "p1", "exe": "app", "level": "info",
		"target": "main", "msg": "hello",
	}))
	rec := b.Finish()
	defer rec.Release()

	path, _, err := partition.WriteLocal(dir, schema, "log_entries", "global", rec)
	require.NoError(t, err)
	return path
}

func TestRowCache_SecondReadIsMemoized(t *testing.T) {
	dir := t.TempDir()
	objDir := t.TempDir()

	local := writeFixturePartition(t, dir)

	backing, err := objectstore.NewLocalStore(objDir)
	require.NoError(t, err)
	raw, err := os.ReadFile(local)
	require.NoError(t, err)
	require.NoError(t, backing.Put(context.Background(), "log_entries/global/part-1.parquet", raw))

	store := &countingStore{LocalStore: backing}
	cache := newRowCache(store, dir)
	schema := recordbuilder.LogSchema()

	rows1, err := cache.rows(context.Background(), "log_entries/global/part-1.parquet", schema)
	require.NoError(t, err)
	require.Len(t, rows1, 1)
	require.Equal(t, "hello", rows1[0]["msg"])
	require.Equal(t, 1, store.gets)

	rows2, err := cache.rows(context.Background(), "log_entries/global/part-1.parquet", schema)
	require.NoError(t, err)
	require.Equal(t, rows1, rows2)
	require.Equal(t, 1, store.gets, "second read should be served from cache without another Get")
}
