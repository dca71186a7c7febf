package sqlengine

import (
	"testing"

	gmssql "github.com/dolthub/go-mysql-server/sql"
	gmstypes "github.com/dolthub/go-mysql-server/sql/types"
	"github.com/stretchr/testify/require"

	"github.com/madesroches/micromegas-sub003/internal/jsonbprop"
	"github.com/madesroches/micromegas-sub003/internal/model"
)

// literalExpr is a minimal gms Expression standing in for a parsed
// argument, so these tests exercise scalarExpr.Eval without needing a
// real SQL parser or a live engine.
type literalExpr struct {
	value any
	typ   gmssql.Type
}

func (l literalExpr) Resolved() bool                 { return true }
func (l literalExpr) String() string                 { return "literal" }
func (l literalExpr) Type() gmssql.Type              { return l.typ }
func (l literalExpr) IsNullable() bool               { return false }
func (l literalExpr) Children() []gmssql.Expression  { return nil }
func (l literalExpr) WithChildren(c ...gmssql.Expression) (gmssql.Expression, error) {
	return l, nil
}
func (l literalExpr) Eval(ctx *gmssql.Context, row gmssql.Row) (any, error) { return l.value, nil }

var _ gmssql.Expression = literalExpr{}

func TestPropertyGetFunction_ReturnsMatchingValue(t *testing.T) {
	encoded := jsonbprop.Encode(&model.PropertySet{Items: []model.Property{{Key: "host", Value: "db-1"}}})

	ctor := builtinFunctions["property_get"]
	expr, err := ctor([]gmssql.Expression{
		literalExpr{value: encoded, typ: gmstypes.Blob},
		literalExpr{value: "host", typ: gmstypes.Text},
	})
	require.NoError(t, err)

	out, err := expr.Eval(nil, nil)
	require.NoError(t, err)
	require.Equal(t, "db-1", out)
}

func TestPropertyGetFunction_MissingKeyReturnsNil(t *testing.T) {
	encoded := jsonbprop.Encode(&model.PropertySet{Items: []model.Property{{Key: "host", Value: "db-1"}}})

	ctor := builtinFunctions["property_get"]
	expr, err := ctor([]gmssql.Expression{
		literalExpr{value: encoded, typ: gmstypes.Blob},
		literalExpr{value: "missing", typ: gmstypes.Text},
	})
	require.NoError(t, err)

	out, err := expr.Eval(nil, nil)
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestBuiltinFunctions_WrongArityIsRejected(t *testing.T) {
	_, err := builtinFunctions["property_get"]([]gmssql.Expression{literalExpr{value: "only one"}})
	require.Error(t, err)

	_, err = builtinFunctions["properties_to_dict"]([]gmssql.Expression{literalExpr{}, literalExpr{}})
	require.Error(t, err)
}

func TestScalarExpr_WithChildrenReplacesArguments(t *testing.T) {
	ctor := builtinFunctions["jsonb_format_json"]
	expr, err := ctor([]gmssql.Expression{literalExpr{value: []byte(nil)}})
	require.NoError(t, err)

	encoded := jsonbprop.Encode(&model.PropertySet{Items: []model.Property{{Key: "k", Value: "v"}}})

	replaced, err := expr.WithChildren(literalExpr{value: encoded})
	require.NoError(t, err)

	out, err := replaced.Eval(nil, nil)
	require.NoError(t, err)
	require.Contains(t, out.(string), `"k":"v"`)
}
