package sqlengine

import (
	"context"
	"fmt"
	"time"

	sqle "github.com/dolthub/go-mysql-server"
	"github.com/dolthub/go-mysql-server/memory"
	gmssql "github.com/dolthub/go-mysql-server/sql"

	"github.com/madesroches/micromegas-sub003/internal/catalog"
	"github.com/madesroches/micromegas-sub003/internal/jit"
	"github.com/madesroches/micromegas-sub003/internal/objectstore"
	"github.com/madesroches/micromegas-sub003/internal/view"
)

// Session is the opaque handle §4.12 step 5 returns: a gms engine with
// every globally scheduled view instance registered as a table, bound
// to the object store and view registry that on-demand JIT
// materialization needs. That path is reached from Go through
// ViewInstance.Resolve, not from SQL text.
type Session struct {
	Engine       *sqle.Engine
	Context      *gmssql.Context
	ViewInstance *ViewInstanceResolver

	database string
}

// BuildSession attaches a PartitionTable for every scheduled view
// instance, scoped to [begin, end), registers the built-in scalar
// functions, and wires a ViewInstanceResolver for the JIT-only
// view-sets. No view_instance table function is registered with the
// engine.
func BuildSession(ctx context.Context, views *view.Registry, cat *catalog.Catalog, store objectstore.Store, jitEngine *jit.Engine, scratchDir string, begin, end time.Time) (*Session, error) {
	const dbName = "lakehouse"
	db := memory.NewDatabase(dbName)
	rows := newRowCache(store, scratchDir)

	for _, factory := range views.Scheduled() {
		info := factory.Info()
		for _, instanceID := range info.ScheduledInstances {
			v, err := factory.NewInstance(ctx, instanceID)
			if err != nil {
				return nil, fmt.Errorf("sqlengine: instantiating %s/%s: %w", info.Name, instanceID, err)
			}
			table := NewPartitionTable(info.Name, info.Name, instanceID, v, cat, rows, begin, end)
			db.AddTable(info.Name, table)
		}
	}

	pro := memory.NewDBProvider(db)
	session := memory.NewSession(gmssql.NewBaseSession(), pro)
	sctx := gmssql.NewContext(ctx, gmssql.WithSession(session))
	sctx.SetCurrentDatabase(dbName)

	engine := sqle.NewDefault(pro)
	RegisterBuiltins(sctx, engine.Analyzer.Catalog)

	return &Session{
		Engine:  engine,
		Context: sctx,
		ViewInstance: &ViewInstanceResolver{
			Views: views, JIT: jitEngine, Catalog: cat, Rows: rows,
		},
		database: dbName,
	}, nil
}

// Query runs sql through the session's engine, same shape as
// viewproc.runTransform's embedding pattern.
func (s *Session) Query(query string) (gmssql.Schema, gmssql.RowIter, error) {
	return s.Engine.Query(s.Context, query)
}
