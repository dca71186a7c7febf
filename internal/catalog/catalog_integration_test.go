//go:build integration

package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/madesroches/micromegas-sub003/internal/model"
	doltcontainer "github.com/testcontainers/testcontainers-go/modules/dolt"

	"github.com/stretchr/testify/require"
)

// newTestCatalog spins up a real dolt sql-server in a container and
// returns a Catalog connected to it. Gated behind the integration
// build tag since it needs a container runtime, matching the
// teacher's own pattern of keeping container-backed tests out of the
// default `go test ./...` run.
func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	ctx := context.Background()
	container, err := doltcontainer.Run(ctx, "dolthub/dolt-sql-server:1.40.9")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	cat, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })
	return cat
}

func TestCatalog_PartitionConflictOnConcurrentInsert(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()

	begin := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := model.PartitionMeta{
		ViewSetName:    "log_entries",
		ViewInstanceID: "global",
		SchemaHash:     "v1",
		Insert:         model.InsertRange{Begin: begin, End: begin.Add(time.Hour)},
		EventMin:       begin,
		EventMax:       begin.Add(30 * time.Minute),
		FilePath:       "views/log_entries/global/part-a.parquet",
		NumRows:        10,
		SourceDataHash: "hash-a",
	}
	require.NoError(t, cat.InsertPartition(ctx, p))

	p2 := p
	p2.FilePath = "views/log_entries/global/part-b.parquet"
	p2.SourceDataHash = "hash-b"
	err := cat.InsertPartition(ctx, p2)
	require.Error(t, err)
	require.Equal(t, model.ErrCatalogConflict, model.KindOf(err))
}

func TestCatalog_ListPartitionsDedupesStale(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()

	begin := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := model.PartitionMeta{
		ViewSetName:    "log_entries",
		ViewInstanceID: "global",
		SchemaHash:     "v1",
		Insert:         model.InsertRange{Begin: begin, End: begin.Add(time.Hour)},
		EventMin:       begin,
		EventMax:       begin.Add(30 * time.Minute),
		FilePath:       "views/log_entries/global/part-a.parquet",
		NumRows:        10,
		SourceDataHash: "hash-a",
	}
	require.NoError(t, cat.InsertPartition(ctx, p))

	time.Sleep(10 * time.Millisecond) // ensure updated_at strictly advances
	p.FilePath = "views/log_entries/global/part-a-rebuilt.parquet"
	p.SourceDataHash = "hash-b"
	p.NumRows = 12
	require.NoError(t, cat.ReplacePartition(ctx, p))

	rows, err := cat.ListPartitions(ctx, "log_entries", "global", begin, begin.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "views/log_entries/global/part-a-rebuilt.parquet", rows[0].FilePath)
	require.Equal(t, int64(12), rows[0].NumRows)
}

func TestCatalog_DeletePartitionRetiresRow(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()

	begin := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := model.PartitionMeta{
		ViewSetName:    "thread_spans",
		ViewInstanceID: "stream-a",
		SchemaHash:     "v1",
		Insert:         model.InsertRange{Begin: begin, End: begin.Add(time.Hour)},
		EventMin:       begin,
		EventMax:       begin.Add(30 * time.Minute),
		FilePath:       "views/thread_spans/stream-a/part-a.parquet",
		NumRows:        5,
		SourceDataHash: "hash-a",
	}
	require.NoError(t, cat.InsertPartition(ctx, p))

	require.NoError(t, cat.DeletePartition(ctx, p.Key()))

	rows, err := cat.ListPartitions(ctx, "thread_spans", "stream-a", begin, begin.Add(time.Hour))
	require.NoError(t, err)
	require.Empty(t, rows)
}
