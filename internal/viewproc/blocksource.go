// Package viewproc implements the two view-set materialization
// strategies named in §4.7: block-source views (C8), which decode raw
// blocks directly, and SQL-derived views (C9), which transform other
// views' already-materialized rows through an embedded SQL engine.
package viewproc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/apache/arrow/go/arrow/memory"

	"github.com/madesroches/micromegas-sub003/internal/block"
	"github.com/madesroches/micromegas-sub003/internal/catalog"
	"github.com/madesroches/micromegas-sub003/internal/jsonbprop"
	"github.com/madesroches/micromegas-sub003/internal/model"
	"github.com/madesroches/micromegas-sub003/internal/objectstore"
	"github.com/madesroches/micromegas-sub003/internal/partition"
	"github.com/madesroches/micromegas-sub003/internal/recordbuilder"
	"github.com/madesroches/micromegas-sub003/internal/timeconv"
	"github.com/madesroches/micromegas-sub003/internal/view"
)

// ErrNothingToBuild is returned by a BlockProcessor when a requested
// window has no source blocks — not a failure, just nothing to do.
var ErrNothingToBuild = errors.New("viewproc: no source blocks in window")

// BlockSource is the view-specific glue a block-source view-set
// supplies: its schema, a fresh decoder dispatcher per block, and how
// to drain that dispatcher's accumulated state into a Builder once a
// block has been decoded. conv converts the block's own process's tick
// counter to UTC (C3); proc supplies the process/exe dictionary values.
// procProps and events are the §4.2 two-tier property-serialization
// caches: procProps is shared for the processor's lifetime (one entry
// per process id), events is fresh per block (one entry per distinct
// *model.PropertySet pointer seen in that block).
type BlockSource interface {
	Schema() recordbuilder.Schema
	NewDispatcher() block.Dispatcher
	AppendRows(b *recordbuilder.Builder, blk *model.Block, proc *model.Process, conv timeconv.Converter, d block.Dispatcher, procProps *jsonbprop.ProcessCache, events *jsonbprop.EventCache) error
}

// BlockProcessor implements view.View for one instance of a
// block-source view-set: it reads blocks belonging to streamID (the
// instance id) from the catalog and object store, decodes them with
// the UDT dispatcher C1 provides, and writes the resulting rows out
// as a partition via C2+C6.
type BlockProcessor struct {
	Info      model.ViewSetInfo
	StreamID  string
	Source    BlockSource
	Catalog   *catalog.Catalog
	Store     objectstore.Store
	Allocator memory.Allocator
	LocalDir  string
	Log       *slog.Logger

	procCache     map[string]*model.Process
	procPropCache *jsonbprop.ProcessCache
}

func (p *BlockProcessor) resolveProcess(ctx context.Context, processID string) (*model.Process, error) {
	if p.procCache == nil {
		p.procCache = make(map[string]*model.Process)
	}
	if proc, ok := p.procCache[processID]; ok {
		return proc, nil
	}
	proc, _, err := p.Catalog.GetProcess(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("viewproc: resolving process %s: %w", processID, err)
	}
	p.procCache[processID] = proc
	return proc, nil
}

var _ view.View = (*BlockProcessor)(nil)

func (p *BlockProcessor) DescribeSchema() recordbuilder.Schema { return p.Source.Schema() }

// blocksInWindow returns this instance's blocks whose BeginTime falls
// in [window.Begin, window.End), the insert-time grain the spec scopes
// a partition to.
func (p *BlockProcessor) blocksInWindow(ctx context.Context, window model.InsertRange) ([]*model.Block, error) {
	all, err := p.Catalog.BlocksForStream(ctx, p.StreamID)
	if err != nil {
		return nil, err
	}
	var out []*model.Block
	for _, b := range all {
		if window.Contains(b.BeginTime) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (p *BlockProcessor) MakeBatchPartitionSpec(ctx context.Context, window model.InsertRange) (view.PartitionSpec, bool, error) {
	blocks, err := p.blocksInWindow(ctx, window)
	if err != nil {
		return view.PartitionSpec{}, false, err
	}
	if len(blocks) == 0 {
		return view.PartitionSpec{}, false, nil
	}
	ids := make([]string, len(blocks))
	for i, b := range blocks {
		ids[i] = b.BlockID
	}
	return view.PartitionSpec{ViewInstanceID: p.StreamID, Window: window, SourceIDs: ids}, true, nil
}

func (p *BlockProcessor) Build(ctx context.Context, spec view.PartitionSpec) (model.PartitionMeta, error) {
	blocks, err := p.blocksInWindow(ctx, spec.Window)
	if err != nil {
		return model.PartitionMeta{}, err
	}
	if len(blocks) == 0 {
		return model.PartitionMeta{}, ErrNothingToBuild
	}
	return p.build(ctx, spec.Window, blocks, spec.Replace)
}

func (p *BlockProcessor) JITUpdate(ctx context.Context, t time.Time) (model.PartitionMeta, error) {
	grain := p.Info.SourceGrain
	if grain <= 0 {
		grain = time.Hour
	}
	begin := t.Truncate(grain)
	window := model.InsertRange{Begin: begin, End: begin.Add(grain)}
	blocks, err := p.blocksInWindow(ctx, window)
	if err != nil {
		return model.PartitionMeta{}, err
	}
	if len(blocks) == 0 {
		return model.PartitionMeta{}, ErrNothingToBuild
	}
	return p.build(ctx, window, blocks, false)
}

func (p *BlockProcessor) BuildTimeFilter(begin, end time.Time) view.Predicate {
	return view.Predicate{Column: "time", Op: ">=", Value: begin}
}

func (p *BlockProcessor) build(ctx context.Context, window model.InsertRange, blocks []*model.Block, replace bool) (model.PartitionMeta, error) {
	schema := p.Source.Schema()
	b := recordbuilder.New(p.Allocator, schema)
	defer b.Release()
	if p.procPropCache == nil {
		p.procPropCache = jsonbprop.NewProcessCache()
	}

	sourceIDs := make([]string, 0, len(blocks))
	for _, blk := range blocks {
		payload, err := p.Store.Get(ctx, blk.PayloadLocation)
		if err != nil {
			return model.PartitionMeta{}, fmt.Errorf("viewproc: reading block %s: %w", blk.BlockID, err)
		}
		proc, err := p.resolveProcess(ctx, blk.ProcessID)
		if err != nil {
			return model.PartitionMeta{}, err
		}
		conv := timeconv.New(proc.StartTime, proc.StartTicks, proc.TscFrequency)

		d := p.Source.NewDispatcher()
		if err := block.Decode(payload, d, func(objErr error) {
			if p.Log != nil {
				p.Log.Warn("skipping malformed object", "block_id", blk.BlockID, "error", objErr)
			}
		}); err != nil {
			if p.Log != nil {
				p.Log.Warn("skipping malformed block", "block_id", blk.BlockID, "error", err)
			}
			continue
		}
		events := jsonbprop.NewEventCache()
		if err := p.Source.AppendRows(b, blk, proc, conv, d, p.procPropCache, events); err != nil {
			return model.PartitionMeta{}, fmt.Errorf("viewproc: appending rows from block %s: %w", blk.BlockID, err)
		}
		sourceIDs = append(sourceIDs, blk.BlockID)
	}

	rec := b.Finish()
	defer rec.Release()
	minNs, maxNs, haveT := b.TimeRange()

	localPath, _, err := partition.WriteLocal(p.LocalDir, schema, p.Info.Name, p.StreamID, rec)
	if err != nil {
		return model.PartitionMeta{}, err
	}
	objectKey := fmt.Sprintf("partitions/%s/%s/%s", p.Info.Name, p.StreamID, filepath.Base(localPath))

	meta := model.PartitionMeta{
		ViewSetName:    p.Info.Name,
		ViewInstanceID: p.StreamID,
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
