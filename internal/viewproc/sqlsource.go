package viewproc

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	sqle "github.com/dolthub/go-mysql-server"
	"github.com/dolthub/go-mysql-server/memory"
	gmssql "github.com/dolthub/go-mysql-server/sql"

	arrowmem "github.com/apache/arrow/go/arrow/memory"

	"github.com/madesroches/micromegas-sub003/internal/catalog"
	"github.com/madesroches/micromegas-sub003/internal/gmscolumn"
	"github.com/madesroches/micromegas-sub003/internal/model"
	"github.com/madesroches/micromegas-sub003/internal/objectstore"
	"github.com/madesroches/micromegas-sub003/internal/partition"
	"github.com/madesroches/micromegas-sub003/internal/recordbuilder"
	"github.com/madesroches/micromegas-sub003/internal/view"
)

// SQLSource is the view-specific glue a SQL-derived view-set (C9)
// supplies: the upstream view-set its query reads from, under the
// fixed table name "input", and the transform/merge statement itself.
type SQLSource interface {
	InputViewSetName() string
	InputSchema() recordbuilder.Schema
	Schema() recordbuilder.Schema
	Query() string
}

// SQLProcessor implements view.View for one instance of a SQL-derived
// view-set: it loads the upstream view's materialized rows for the
// window, runs Source.Query() over them through an embedded
// go-mysql-server engine, and writes the result out as a partition.
type SQLProcessor struct {
	Info       model.ViewSetInfo
	InstanceID string
	Source     SQLSource
	Views      *view.Registry
	Catalog    *catalog.Catalog
	Store      objectstore.Store
	Allocator  arrowmem.Allocator
	LocalDir   string
}

var _ view.View = (*SQLProcessor)(nil)

func (p *SQLProcessor) DescribeSchema() recordbuilder.Schema { return p.Source.Schema() }

func (p *SQLProcessor) BuildTimeFilter(begin, end time.Time) view.Predicate {
	return view.Predicate{Column: "time", Op: ">=", Value: begin}
}

// inputPartitions resolves the upstream view-set's partitions covering
// window and downloads each to a local scratch file, returning their
// local paths alongside the source identifiers (the upstream file
// paths) the freshness hash is computed from.
func (p *SQLProcessor) inputPartitions(ctx context.Context, window model.InsertRange) ([]string, []string, error) {
	metas, err := p.Catalog.ListPartitions(ctx, p.Source.InputViewSetName(), p.InstanceID, window.Begin, window.End)
	if err != nil {
		return nil, nil, err
	}
	paths := make([]string, 0, len(metas))
	sourceIDs := make([]string, 0, len(metas))
	for _, m := range metas {
		data, err := p.Store.Get(ctx, m.FilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("viewproc: fetching input partition %s: %w", m.FilePath, err)
		}
		local := filepath.Join(p.LocalDir, "sqlsource-input-"+filepath.Base(m.FilePath))
		if err := os.WriteFile(local, data, 0o644); err != nil {
			return nil, nil, fmt.Errorf("viewproc: staging input partition %s: %w", m.FilePath, err)
		}
		paths = append(paths, local)
		sourceIDs = append(sourceIDs, m.FilePath)
	}
	return paths, sourceIDs, nil
}

func (p *SQLProcessor) MakeBatchPartitionSpec(ctx context.Context, window model.InsertRange) (view.PartitionSpec, bool, error) {
	_, sourceIDs, err := p.inputPartitions(ctx, window)
	if err != nil {
		return view.PartitionSpec{}, false, err
	}
	if len(sourceIDs) == 0 {
		return view.PartitionSpec{}, false, nil
	}
	return view.PartitionSpec{ViewInstanceID: p.InstanceID, Window: window, SourceIDs: sourceIDs}, true, nil
}

func (p *SQLProcessor) Build(ctx context.Context, spec view.PartitionSpec) (model.PartitionMeta, error) {
	return p.build(ctx, spec.Window, spec.Replace)
}

func (p *SQLProcessor) JITUpdate(ctx context.Context, t time.Time) (model.PartitionMeta, error) {
	grain := p.Info.SourceGrain
	if grain <= 0 {
		grain = time.Hour
	}
	begin := t.Truncate(grain)
	return p.build(ctx, model.InsertRange{Begin: begin, End: begin.Add(grain)}, false)
}

func (p *SQLProcessor) build(ctx context.Context, window model.InsertRange, replace bool) (model.PartitionMeta, error) {
	localPaths, sourceIDs, err := p.inputPartitions(ctx, window)
	if err != nil {
		return model.PartitionMeta{}, err
	}
	if len(localPaths) == 0 {
		return model.PartitionMeta{}, ErrNothingToBuild
	}

	inputSchema := p.Source.InputSchema()
	var rows []map[string]any
	for _, path := range localPaths {
		r, err := partition.ReadLocal(path, inputSchema)
		if err != nil {
			return model.PartitionMeta{}, err
		}
		rows = append(rows, r...)
	}

	resultRows, err := runTransform(ctx, inputSchema, rows, p.Source.Query())
	if err != nil {
		return model.PartitionMeta{}, fmt.Errorf("viewproc: transform query: %w", err)
	}

	outSchema := p.Source.Schema()
	b := recordbuilder.New(p.Allocator, outSchema)
	defer b.Release()
	for _, row := range resultRows {
		if err := b.AppendRow(row); err != nil {
			return model.PartitionMeta{}, err
		}
	}
	rec := b.Finish()
	defer rec.Release()
	minNs, maxNs, haveT := b.TimeRange()

	localPath, _, err := partition.WriteLocal(p.LocalDir, outSchema, p.Info.Name, p.InstanceID, rec)
	if err != nil {
		return model.PartitionMeta{}, err
	}
	objectKey := fmt.Sprintf("partitions/%s/%s/%s", p.Info.Name, p.InstanceID, filepath.Base(localPath))

	meta := model.PartitionMeta{
		ViewSetName:    p.Info.Name,
		ViewInstanceID: p.InstanceID,
		SchemaHash:     p.Info.SchemaHash,
		Insert:         window,
		FilePath:       objectKey,
		NumRows:        int64(rec.NumRows()),
		SourceDataHash: partition.SourceDataHash(sourceIDs),
	}
	if haveT {
		meta.EventMin = time.Unix(0, minNs).UTC()
		meta.EventMax = time.Unix(0, maxNs).UTC()
	}
	if err := partition.Publish(ctx, p.Store, p.Catalog, localPath, objectKey, meta, replace); err != nil {
		return model.PartitionMeta{}, err
	}
	return meta, nil
}

// runTransform loads rows into a single-table in-memory go-mysql-server
// database named "view", runs query against it, and returns the result
// rows converted back to plain maps keyed by the result's own column
// names — the "count/transform/merge SQL statements run through a
// gms.Engine" step (§4.9).
func runTransform(ctx context.Context, schema recordbuilder.Schema, rows []map[string]any, query string) ([]map[string]any, error) {
	db := memory.NewDatabase("view")
	pro := memory.NewDBProvider(db)
	session := memory.NewSession(gmssql.NewBaseSession(), pro)
	sctx := gmssql.NewContext(ctx, gmssql.WithSession(session))
	sctx.SetCurrentDatabase("view")

	gmsSchema := make(gmssql.Schema, len(schema.Columns))
	for i, col := range schema.Columns {
		gmsSchema[i] = &gmssql.Column{Name: col.Name, Type: gmscolumn.Type(col.Kind), Nullable: col.Nullable, Source: "input"}
	}
	table := memory.NewTable(db, "input", gmssql.NewPrimaryKeySchema(gmsSchema), db.GetForeignKeyCollection())
	db.AddTable("input", table)

	inserter := table.Inserter(sctx)
	for _, row := range rows {
		values := make(gmssql.Row, len(schema.Columns))
		for i, col := range schema.Columns {
			values[i] = row[col.Name]
		}
		if err := inserter.Insert(sctx, values); err != nil {
			return nil, fmt.Errorf("loading input table: %w", err)
		}
	}
	if err := inserter.Close(sctx); err != nil {
		return nil, fmt.Errorf("closing input table loader: %w", err)
	}

	engine := sqle.NewDefault(pro)
	resultSchema, iter, err := engine.Query(sctx, query)
	if err != nil {
		return nil, err
	}
	defer iter.Close(sctx)

	var out []map[string]any
	for {
		row, err := iter.Next(sctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		m := make(map[string]any, len(resultSchema))
		for i, col := range resultSchema {
			m[col.Name] = row[i]
		}
		out = append(out, m)
	}
	return out, nil
}

