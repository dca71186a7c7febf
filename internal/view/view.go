// Package view defines the view-set capability contract (C7, §4.7):
// the interface every materialization strategy — block-source (C8) and
// SQL-derived (C9) — implements, and the registry that maps a view-set
// name to the factory producing per-instance View objects.
package view

import (
	"context"
	"time"

	"github.com/madesroches/micromegas-sub003/internal/model"
	"github.com/madesroches/micromegas-sub003/internal/recordbuilder"
)

// PartitionSpec describes one partition the batch scheduler (C11) or
// JIT engine (C10) should build: the insert-time window to cover and
// the source identifiers that will feed SourceDataHash, computed
// before any row is actually read so freshness can be checked first.
type PartitionSpec struct {
	ViewInstanceID string
	Window         model.InsertRange
	SourceIDs      []string

	// Replace is set by the JIT engine (C10) when a partition already
	// exists for this window but its source_data_hash is stale: Build
	// should overwrite the existing catalog row in place (§3.3/§4.10)
	// instead of treating a key collision as a losing race.
	Replace bool
}

// View is the capability set one materialized view-set instance
// exposes. A View is scoped to one instance id (e.g. a specific
// process id for a per-process view, or "global").
type View interface {
	// DescribeSchema returns the Arrow schema this view's partitions
	// are written with.
	DescribeSchema() recordbuilder.Schema

	// MakeBatchPartitionSpec returns the partition the batch scheduler
	// should build for window, or ok=false if there is nothing to do
	// (e.g. no blocks inserted in that window for this instance).
	MakeBatchPartitionSpec(ctx context.Context, window model.InsertRange) (spec PartitionSpec, ok bool, err error)

	// Build materializes the partition described by spec and registers
	// it in the catalog, used by the batch scheduler (C11) once it has
	// decided spec is worth building (its source hash differs from
	// whatever is already on file for that slot).
	Build(ctx context.Context, spec PartitionSpec) (model.PartitionMeta, error)

	// JITUpdate builds (or rebuilds, if stale) the partition covering
	// t on demand, returning its catalog metadata. Called by the query
	// engine (C12) when a query's time range reaches into a window the
	// batch scheduler hasn't materialized yet (§4.10).
	JITUpdate(ctx context.Context, t time.Time) (model.PartitionMeta, error)

	// BuildTimeFilter returns a predicate on this view's time column.
	// The implementations here return only the lower bound
	// (time >= begin). The query engine computes it but does not apply
	// it; no row groups are skipped with it.
	BuildTimeFilter(begin, end time.Time) Predicate
}

// Predicate is a simple column/operator/value triple the query engine
// translates into its own filter representation — kept narrow rather
// than exposing a SQL string, since both the parquet reader's row
// group statistics and go-mysql-server's own expression tree need to
// consume it structurally, not textually.
type Predicate struct {
	Column string
	Op     string // ">=", "<"
	Value  time.Time
}

// Factory produces a View for a specific instance id within one
// view-set. The factories in internal/viewproc reject "global" unless
// ViewSetInfo.AllowsGlobal; any other id is accepted without checking
// that a matching process or stream exists.
type Factory interface {
	Info() model.ViewSetInfo
	NewInstance(ctx context.Context, instanceID string) (View, error)
}
