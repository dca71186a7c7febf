package sqlengine

import (
	"context"
	"fmt"
	"time"

	"github.com/madesroches/micromegas-sub003/internal/jit"
	"github.com/madesroches/micromegas-sub003/internal/view"
)

// ViewInstanceResolver serves view_instance(view_set, instance_id)
// lookups from Go: given a query's time range, it materializes whatever
// JIT partitions (C10) are missing or stale for that instance and
// returns the same kind of table provider a globally-scheduled view
// gets. It is not registered with the gms engine as a table function,
// so SQL text cannot call view_instance(...) directly.
type ViewInstanceResolver struct {
	Views   *view.Registry
	JIT     *jit.Engine
	Catalog catalogReader
	Rows    *rowCache
}

// Resolve returns the table for one view-set instance. Unlike
// a globally scheduled instance's PartitionTable, which only reads
// whatever the scheduler has already published, this one first asks
// the JIT engine to ensure [begin, end) is covered before building the
// table provider — so the very first query against a brand-new
// per-process or per-stream instance still sees data.
func (r *ViewInstanceResolver) Resolve(ctx context.Context, viewSetName, instanceID string, begin, end time.Time) (*PartitionTable, error) {
	factory := r.Views.Get(viewSetName)
	if factory == nil {
		return nil, fmt.Errorf("sqlengine: unknown view-set %q", viewSetName)
	}
	if _, err := r.JIT.Ensure(ctx, viewSetName, instanceID, begin, end); err != nil {
		return nil, fmt.Errorf("sqlengine: materializing %s/%s: %w", viewSetName, instanceID, err)
	}
	v, err := factory.NewInstance(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("sqlengine: resolving instance %s/%s: %w", viewSetName, instanceID, err)
	}
	return NewPartitionTable(viewSetName, viewSetName, instanceID, v, r.Catalog, r.Rows, begin, end), nil
}
