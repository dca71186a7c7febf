package sqlengine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/madesroches/micromegas-sub003/internal/objectstore"
	"github.com/madesroches/micromegas-sub003/internal/partition"
	"github.com/madesroches/micromegas-sub003/internal/recordbuilder"
)

// rowCache is §4.12 step 4's per-file cache: a parquet file never
// changes once the catalog has a row pointing at it (§3.3), so once a
// session has paid to download and decode one it keeps the decoded
// rows around for the rest of that session's queries instead of
// re-fetching and re-parsing it on every table scan that touches it.
//
// partition.ReadLocal has no separate footer/row-group read step to
// cache independently of the full decode, so this caches its complete
// output per file path rather than just the footer metadata.
type rowCache struct {
	store   objectstore.Store
	scratch string
	entries sync.Map // file path -> []map[string]any
}

func newRowCache(store objectstore.Store, scratchDir string) *rowCache {
	return &rowCache{store: store, scratch: scratchDir}
}

func (c *rowCache) rows(ctx context.Context, filePath string, schema recordbuilder.Schema) ([]map[string]any, error) {
	if cached, ok := c.entries.Load(filePath); ok {
		return cached.([]map[string]any), nil
	}

	data, err := c.store.Get(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("sqlengine: fetching %s: %w", filePath, err)
	}
	local := filepath.Join(c.scratch, "sqlengine-"+filepath.Base(filePath))
	if err := os.WriteFile(local, data, 0o644); err != nil {
		return nil, fmt.Errorf("sqlengine: staging %s: %w", filePath, err)
	}
	defer os.Remove(local)

	rows, err := partition.ReadLocal(local, schema)
	if err != nil {
		return nil, fmt.Errorf("sqlengine: reading %s: %w", filePath, err)
	}

	if actual, loaded := c.entries.LoadOrStore(filePath, rows); loaded {
		return actual.([]map[string]any), nil
	}
	return rows, nil
}
