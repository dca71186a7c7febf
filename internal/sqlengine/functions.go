package sqlengine

import (
	"fmt"

	gmssql "github.com/dolthub/go-mysql-server/sql"
	"github.com/dolthub/go-mysql-server/sql/analyzer"
	gmstypes "github.com/dolthub/go-mysql-server/sql/types"
)

// scalarExpr adapts one of this package's pure Go functions to gms's
// sql.Expression, the unit both WHERE clauses and SELECT lists are
// built from. eval receives the already-evaluated argument values in
// declaration order.
type scalarExpr struct {
	name     string
	args     []gmssql.Expression
	retType  gmssql.Type
	nullable bool
	eval     func(args []any) (any, error)
}

var _ gmssql.Expression = (*scalarExpr)(nil)

func (e *scalarExpr) Resolved() bool {
	for _, a := range e.args {
		if !a.Resolved() {
			return false
		}
	}
	return true
}

func (e *scalarExpr) String() string {
	return fmt.Sprintf("%s(...)", e.name)
}

func (e *scalarExpr) Type() gmssql.Type   { return e.retType }
func (e *scalarExpr) IsNullable() bool    { return e.nullable }
func (e *scalarExpr) Children() []gmssql.Expression { return e.args }

func (e *scalarExpr) WithChildren(children ...gmssql.Expression) (gmssql.Expression, error) {
	if len(children) != len(e.args) {
		return nil, fmt.Errorf("sqlengine: %s expects %d arguments, got %d", e.name, len(e.args), len(children))
	}
	cp := *e
	cp.args = children
	return &cp, nil
}

func (e *scalarExpr) Eval(ctx *gmssql.Context, row gmssql.Row) (any, error) {
	values := make([]any, len(e.args))
	for i, a := range e.args {
		v, err := a.Eval(ctx, row)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return e.eval(values)
}

// builtinFunction adapts one of builtinFunctions' constructors to
// gms's sql.Function, the interface its Analyzer.Catalog registers
// scalar functions under (see RegisterBuiltins).
type builtinFunction struct {
	name string
	ctor func(args []gmssql.Expression) (gmssql.Expression, error)
}

var _ gmssql.Function = builtinFunction{}

func (f builtinFunction) FunctionName() string { return f.name }
func (f builtinFunction) Description() string {
	return fmt.Sprintf("sqlengine built-in scalar function %s", f.name)
}
func (f builtinFunction) NewInstance(args []gmssql.Expression) (gmssql.Expression, error) {
	return f.ctor(args)
}

// RegisterBuiltins installs property_get, properties_to_dict, and
// jsonb_format_json on engine's function catalog so plain SQL can call
// them (§4.12 step 3). BuildSession calls this once per session.
func RegisterBuiltins(ctx *gmssql.Context, catalog *analyzer.Catalog) {
	for name, ctor := range builtinFunctions {
		catalog.RegisterFunction(ctx, builtinFunction{name: name, ctor: ctor})
	}
}

// builtinFunctions are this package's scalar functions described the
// way gms's function catalog expects: a name, arity, and a
// constructor taking the already-parsed argument expressions.
var builtinFunctions = map[string]func(args []gmssql.Expression) (gmssql.Expression, error){
	"property_get": func(args []gmssql.Expression) (gmssql.Expression, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("property_get takes 2 arguments, got %d", len(args))
		}
		return &scalarExpr{name: "property_get", args: args, retType: gmstypes.Text, nullable: true, eval: func(v []any) (any, error) {
			data, _ := v[0].([]byte)
			key, _ := v[1].(string)
			val, ok := PropertyGet(data, key)
			if !ok {
				return nil, nil
			}
			return val, nil
		}}, nil
	},
	"properties_to_dict": func(args []gmssql.Expression) (gmssql.Expression, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("properties_to_dict takes 1 argument, got %d", len(args))
		}
		return &scalarExpr{name: "properties_to_dict", args: args, retType: gmstypes.Text, eval: func(v []any) (any, error) {
			data, _ := v[0].([]byte)
			return PropertiesToDict(data)
		}}, nil
	},
	"jsonb_format_json": func(args []gmssql.Expression) (gmssql.Expression, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("jsonb_format_json takes 1 argument, got %d", len(args))
		}
		return &scalarExpr{name: "jsonb_format_json", args: args, retType: gmstypes.Text, eval: func(v []any) (any, error) {
			data, _ := v[0].([]byte)
			return JSONBFormatJSON(data)
		}}, nil
	},
}
