// Package gmscolumn maps recordbuilder's Arrow-oriented column kinds
// onto the go-mysql-server type system, shared by everything that
// hands a recordbuilder.Schema to an embedded gms engine: the
// SQL-derived view processor (C9) loading its input table, and the
// query session builder (C12) describing a partition table's schema.
package gmscolumn

import (
	gmssql "github.com/dolthub/go-mysql-server/sql"
	gmstypes "github.com/dolthub/go-mysql-server/sql/types"

	"github.com/madesroches/micromegas-sub003/internal/recordbuilder"
)

// Type returns the gms column type k should be described as.
func Type(k recordbuilder.ColumnKind) gmssql.Type {
	switch k {
	case recordbuilder.KindInt64, recordbuilder.KindTimestampNanos:
		return gmstypes.Int64
	case recordbuilder.KindUint64:
		return gmstypes.Uint64
	case recordbuilder.KindInt32:
		return gmstypes.Int32
	case recordbuilder.KindUint32:
		return gmstypes.Uint32
	case recordbuilder.KindFloat64:
		return gmstypes.Float64
	case recordbuilder.KindString, recordbuilder.KindDictString:
		return gmstypes.Text
	case recordbuilder.KindBinary:
		return gmstypes.Blob
	default:
		return gmstypes.Text
	}
}
