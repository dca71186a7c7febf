package viewproc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/apache/arrow/go/arrow/memory"

	"github.com/madesroches/micromegas-sub003/internal/catalog"
	"github.com/madesroches/micromegas-sub003/internal/model"
	"github.com/madesroches/micromegas-sub003/internal/objectstore"
	"github.com/madesroches/micromegas-sub003/internal/view"
)

// BlockFactory adapts a BlockSource into a view.Factory (C7): one
// factory per block-source view-set, handing out a BlockProcessor
// scoped to whatever stream id a caller asks for. A per-process
// view-set's instance id is the stream id itself, so unlike the
// catalog tables it reads from, a BlockFactory has no enumerable
// instance list to validate against — "global" is the only id ever
// rejected, and only when the view-set doesn't allow it.
type BlockFactory struct {
	ViewSetInfo model.ViewSetInfo
	Source      BlockSource
	Catalog     *catalog.Catalog
	Store       objectstore.Store
	Allocator   memory.Allocator
	LocalDir    string
	Log         *slog.Logger
}

var _ view.Factory = (*BlockFactory)(nil)

func (f *BlockFactory) Info() model.ViewSetInfo { return f.ViewSetInfo }

func (f *BlockFactory) NewInstance(ctx context.Context, instanceID string) (view.View, error) {
	if instanceID == "global" && !f.ViewSetInfo.AllowsGlobal {
		return nil, fmt.Errorf("viewproc: view-set %q has no global instance", f.ViewSetInfo.Name)
	}
	return &BlockProcessor{
		Info:      f.ViewSetInfo,
		StreamID:  instanceID,
		Source:    f.Source,
		Catalog:   f.Catalog,
		Store:     f.Store,
		Allocator: f.Allocator,
		LocalDir:  f.LocalDir,
		Log:       f.Log,
	}, nil
}

// SQLFactory adapts a SQLSource into a view.Factory: one factory per
// SQL-derived view-set, handing out a SQLProcessor that reads its
// input view-set under the same instance id.
type SQLFactory struct {
	ViewSetInfo model.ViewSetInfo
	Source      SQLSource
	Views       *view.Registry
	Catalog     *catalog.Catalog
	Store       objectstore.Store
	Allocator   memory.Allocator
	LocalDir    string
}

var _ view.Factory = (*SQLFactory)(nil)

func (f *SQLFactory) Info() model.ViewSetInfo { return f.ViewSetInfo }

func (f *SQLFactory) NewInstance(ctx context.Context, instanceID string) (view.View, error) {
	if instanceID == "global" && !f.ViewSetInfo.AllowsGlobal {
		return nil, fmt.Errorf("viewproc: view-set %q has no global instance", f.ViewSetInfo.Name)
	}
	return &SQLProcessor{
		Info:       f.ViewSetInfo,
		InstanceID: instanceID,
		Source:     f.Source,
		Views:      f.Views,
		Catalog:    f.Catalog,
		Store:      f.Store,
		Allocator:  f.Allocator,
		LocalDir:   f.LocalDir,
	}, nil
}
