package objectstore

import (
	"context"
	"testing"

	"github.com/madesroches/micromegas-sub003/internal/model"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutGetRangeDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	key := "views/log_entries/2000/part-0001.parquet"
	payload := []byte("0123456789")
	require.NoError(t, store.Put(ctx, key, payload))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	rng, err := store.GetRange(ctx, key, 2, 4)
	require.NoError(t, err)
	require.Equal(t, []byte("2345"), rng)

	require.NoError(t, store.Delete(ctx, key))
	require.NoError(t, store.Delete(ctx, key), "deleting a missing key is not an error")

	_, err = store.Get(ctx, key)
	require.Error(t, err)
	require.Equal(t, model.ErrMissingPayload, model.KindOf(err))
}
