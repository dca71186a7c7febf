package sqlengine

import (
	"context"
	"io"
	"testing"

	sqle "github.com/dolthub/go-mysql-server"
	"github.com/dolthub/go-mysql-server/memory"
	gmssql "github.com/dolthub/go-mysql-server/sql"
	gmstypes "github.com/dolthub/go-mysql-server/sql/types"
	"github.com/stretchr/testify/require"

	"github.com/madesroches/micromegas-sub003/internal/jsonbprop"
	"github.com/madesroches/micromegas-sub003/internal/model"
)

// TestRegisterBuiltins_PropertyGetRunsThroughEngine exercises the full
// path Session.Query relies on: property_get registered on a live
// engine's function catalog, called from an actual parsed SQL
// statement, not invoked directly as a Go constructor (functions_test.go
// covers that narrower case).
func TestRegisterBuiltins_PropertyGetRunsThroughEngine(t *testing.T) {
	db := memory.NewDatabase("lakehouse")
	pro := memory.NewDBProvider(db)
	session := memory.NewSession(gmssql.NewBaseSession(), pro)
	sctx := gmssql.NewContext(context.Background(), gmssql.WithSession(session))
	sctx.SetCurrentDatabase("lakehouse")

	gmsSchema := gmssql.Schema{
		{Name: "process_properties", Type: gmstypes.Blob, Nullable: true, Source: "log_entries"},
		{Name: "properties", Type: gmstypes.Blob, Nullable: true, Source: "log_entries"},
	}
	table := memory.NewTable(db, "log_entries", gmssql.NewPrimaryKeySchema(gmsSchema), db.GetForeignKeyCollection())
	db.AddTable("log_entries", table)

	procProps := jsonbprop.Encode(&model.PropertySet{Items: []model.Property{
		{Key: "env", Value: "prod"},
		{Key: "region", Value: "eu-west-1"},
	}})
	entryProps := jsonbprop.Encode(nil)

	inserter := table.Inserter(sctx)
	require.NoError(t, inserter.Insert(sctx, gmssql.Row{procProps, entryProps}))
	require.NoError(t, inserter.Close(sctx))

	engine := sqle.NewDefault(pro)
	RegisterBuiltins(sctx, engine.Analyzer.Catalog)

	schema, iter, err := engine.Query(sctx, "SELECT property_get(process_properties,'env'), property_get(properties,'missing') FROM log_entries")
	require.NoError(t, err)
	defer iter.Close(sctx)
	require.Len(t, schema, 2)

	row, err := iter.Next(sctx)
	require.NoError(t, err)
	require.Equal(t, "prod", row[0])
	require.Nil(t, row[1])

	_, err = iter.Next(sctx)
	require.ErrorIs(t, err, io.EOF)
}
