package catalog

import (
	"context"
	"time"

	"github.com/madesroches/micromegas-sub003/internal/model"
)

const partitionColumns = `view_set_name, view_instance_id, begin_insert_time, end_insert_time,
		       min_event_time, max_event_time, file_path, file_size,
		       file_schema_hash, source_data_hash, num_rows, updated_at`

func scanPartition(scan func(dest ...any) error) (model.PartitionMeta, error) {
	var p model.PartitionMeta
	err := scan(
		&p.ViewSetName, &p.ViewInstanceID, &p.Insert.Begin, &p.Insert.End,
		&p.EventMin, &p.EventMax, &p.FilePath, &p.FileSize,
		&p.SchemaHash, &p.SourceDataHash, &p.NumRows, &p.Updated,
	)
	return p, err
}

// InsertPartition registers a freshly written partition file (C6).
// The uniqueness constraint is on (view_set_name, view_instance_id,
// file_schema_hash, begin_insert_time): a second writer racing to
// produce the same partition slot gets a duplicate-key error, which
// wrapCatalogErr turns into model.ErrCatalogConflict (§4.6) — the
// caller is expected to treat that as success and discard its own
// file rather than retry.
func (c *Catalog) InsertPartition(ctx context.Context, p model.PartitionMeta) error {
	now := time.Now().UTC()
	_, err := c.execContext(ctx, `
		INSERT INTO lakehouse_partitions (
			view_set_name, view_instance_id, begin_insert_time, end_insert_time,
			min_event_time, max_event_time, file_path, file_size,
			file_schema_hash, source_data_hash, num_rows, updated_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ViewSetName, p.ViewInstanceID, p.Insert.Begin, p.Insert.End,
		p.EventMin, p.EventMax, p.FilePath, p.FileSize,
		p.SchemaHash, p.SourceDataHash, p.NumRows, now, now,
	)
	return err
}

// ReplacePartition overwrites a stale partition in place with a fresh
// one sharing the same key (§3.3/§4.10: the JIT engine rebuilding a
// partition whose source blocks changed). updated_at advances so
// DedupeFresh prefers this row over any other in-flight reader still
// holding a stale listing. The row's old values are overwritten; the
// object-store file it pointed at is not deleted by this call, so
// in-flight queries holding the old file path can keep reading it.
func (c *Catalog) ReplacePartition(ctx context.Context, p model.PartitionMeta) error {
	now := time.Now().UTC()
	_, err := c.execContext(ctx, `
		UPDATE lakehouse_partitions SET
			end_insert_time = ?, min_event_time = ?, max_event_time = ?,
			file_path = ?, file_size = ?, source_data_hash = ?, num_rows = ?, updated_at = ?
		WHERE view_set_name = ? AND view_instance_id = ? AND file_schema_hash = ? AND begin_insert_time = ?
	`,
		p.Insert.End, p.EventMin, p.EventMax, p.FilePath, p.FileSize, p.SourceDataHash, p.NumRows, now,
		p.ViewSetName, p.ViewInstanceID, p.SchemaHash, p.Insert.Begin,
	)
	return err
}

// DeletePartition removes one partition row outright, identified by
// its key. Used by the batch scheduler's merge pass (§4.11 step 5) to
// retire source-grain partitions once their rows have been folded into
// a single merged partition covering the same contiguous insert_range
// — a genuine supersession, not the transient stale/fresh overlap
// §3.3 allows for a single slot's rebuild.
func (c *Catalog) DeletePartition(ctx context.Context, k model.PartitionKey) error {
	_, err := c.execContext(ctx, `
		DELETE FROM lakehouse_partitions
		WHERE view_set_name = ? AND view_instance_id = ? AND file_schema_hash = ? AND begin_insert_time = ?
	`,
		k.ViewSetName, k.ViewInstanceID, k.SchemaHash, k.InsertBegin,
	)
	return err
}

// ListPartitions returns every live partition for (viewSetName,
// viewInstanceID) whose event-time extent could overlap [begin, end),
// already deduplicated to the newest row per PartitionKey (§3.3). The
// SQL filter is an index-backed first pass on the min/max event-time
// columns; the query engine (C12) still applies EventTimeOverlaps
// per-partition, which also drops partitions with no rows.
func (c *Catalog) ListPartitions(ctx context.Context, viewSetName, viewInstanceID string, begin, end time.Time) ([]model.PartitionMeta, error) {
	rows, err := c.queryContext(ctx, `
		SELECT `+partitionColumns+`
		FROM lakehouse_partitions
		WHERE view_set_name = ? AND view_instance_id = ?
		  AND max_event_time >= ? AND min_event_time < ?
	`, viewSetName, viewInstanceID, begin, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PartitionMeta
	for rows.Next() {
		p, err := scanPartition(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return model.DedupeFresh(out), nil
}
