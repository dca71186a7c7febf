package sqlengine

import (
	"context"
	"fmt"
	"io"
	"time"

	gmssql "github.com/dolthub/go-mysql-server/sql"

	"github.com/madesroches/micromegas-sub003/internal/gmscolumn"
	"github.com/madesroches/micromegas-sub003/internal/model"
	"github.com/madesroches/micromegas-sub003/internal/recordbuilder"
	"github.com/madesroches/micromegas-sub003/internal/view"
)

// PartitionTable is the sql.Table §4.12 step 1 attaches for a globally
// scheduled view instance: its Partitions enumerate the catalog rows
// overlapping the table's time range (predicate pushdown at the
// file-selection level), and PartitionRows streams the matching rows
// out of each one's parquet file.
//
// Each partitionHandle wraps one model.PartitionMeta — gms asks for a
// PartitionIter once per scan and then calls PartitionRows once per
// partition it returned, potentially concurrently, so no per-table
// mutable cursor state is kept here.
type PartitionTable struct {
	name     string
	schema   recordbuilder.Schema
	view     view.View
	catalog  catalogReader
	rows     *rowCache
	begin    time.Time
	end      time.Time
	viewSet  string
	instance string
}

// catalogReader is the slice of *catalog.Catalog this package depends
// on, narrowed to ease testing without a live database.
type catalogReader interface {
	ListPartitions(ctx context.Context, viewSetName, viewInstanceID string, begin, end time.Time) ([]model.PartitionMeta, error)
}

// NewPartitionTable builds the table provider for one view instance,
// scoped to a query's time range so Partitions only lists what could
// possibly match. rows is shared across every table in a Session so
// that a file read to satisfy one query is cached for the rest of the
// session's lifetime (§4.12 step 4).
func NewPartitionTable(name, viewSet, instance string, v view.View, cat catalogReader, rows *rowCache, begin, end time.Time) *PartitionTable {
	return &PartitionTable{
		name: name, schema: v.DescribeSchema(), view: v, catalog: cat, rows: rows,
		begin: begin, end: end, viewSet: viewSet, instance: instance,
	}
}

var _ gmssql.Table = (*PartitionTable)(nil)

func (t *PartitionTable) Name() string   { return t.name }
func (t *PartitionTable) String() string { return t.name }

func (t *PartitionTable) Schema() gmssql.Schema {
	cols := make(gmssql.Schema, len(t.schema.Columns))
	for i, c := range t.schema.Columns {
		cols[i] = &gmssql.Column{Name: c.Name, Type: gmscolumn.Type(c.Kind), Nullable: c.Nullable, Source: t.name}
	}
	return cols
}

func (t *PartitionTable) Collation() gmssql.CollationID { return gmssql.Collation_Default }

// partitionHandle adapts one model.PartitionMeta to gms's sql.Partition,
// whose only contract is a stable opaque key.
type partitionHandle struct {
	meta model.PartitionMeta
}

func (p partitionHandle) Key() []byte { return []byte(p.meta.FilePath) }

type partitionIter struct {
	items []partitionHandle
	pos   int
}

func (it *partitionIter) Next(ctx *gmssql.Context) (gmssql.Partition, error) {
	if it.pos >= len(it.items) {
		return nil, io.EOF
	}
	p := it.items[it.pos]
	it.pos++
	return p, nil
}

func (it *partitionIter) Close(ctx *gmssql.Context) error { return nil }

func (t *PartitionTable) Partitions(ctx *gmssql.Context) (gmssql.PartitionIter, error) {
	metas, err := t.catalog.ListPartitions(context.Background(), t.viewSet, t.instance, t.begin, t.end)
	if err != nil {
		return nil, fmt.Errorf("sqlengine: listing partitions for %s: %w", t.name, err)
	}
	filter := t.view.BuildTimeFilter(t.begin, t.end)
	_ = filter // not applied: the parquet reader has no row-group pushdown; file-level pruning is EventTimeOverlaps below.

	items := make([]partitionHandle, 0, len(metas))
	for _, m := range metas {
		if m.EventTimeOverlaps(t.begin, t.end) {
			items = append(items, partitionHandle{meta: m})
		}
	}
	return &partitionIter{items: items}, nil
}

func (t *PartitionTable) PartitionRows(ctx *gmssql.Context, part gmssql.Partition) (gmssql.RowIter, error) {
	ph, ok := part.(partitionHandle)
	if !ok {
		return nil, fmt.Errorf("sqlengine: unexpected partition type %T", part)
	}
	rows, err := t.rows.rows(context.Background(), ph.meta.FilePath, t.schema)
	if err != nil {
		return nil, err
	}
	return &rowIter{schema: t.schema, rows: rows}, nil
}

type rowIter struct {
	schema recordbuilder.Schema
	rows   []map[string]any
	pos    int
}

func (it *rowIter) Next(ctx *gmssql.Context) (gmssql.Row, error) {
	if it.pos >= len(it.rows) {
		return nil, io.EOF
	}
	row := it.rows[it.pos]
	it.pos++
	out := make(gmssql.Row, len(it.schema.Columns))
	for i, c := range it.schema.Columns {
		out[i] = row[c.Name]
	}
	return out, nil
}

func (it *rowIter) Close(ctx *gmssql.Context) error { return nil }
