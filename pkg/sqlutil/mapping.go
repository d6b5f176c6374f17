package sqlutil

import "github.com/user/syncengine/pkg/syncmodel"

// SQLType maps the engine's normalized FieldClass vocabulary onto the sink's
// column types (spec §4.3 type-mapping table). Generalized from the
// teacher's ColumnMapping.DataType field, which carried an equivalent
// free-form type string per source field.
func SQLType(class syncmodel.FieldClass) string {
	switch class {
	case syncmodel.ClassString:
		return "TEXT"
	case syncmodel.ClassInt:
		return "BIGINT"
	case syncmodel.ClassFloat:
		return "DOUBLE PRECISION"
	case syncmodel.ClassBool:
		return "BOOLEAN"
	case syncmodel.ClassDate:
		return "DATE"
	case syncmodel.ClassDatetime:
		return "TIMESTAMP"
	case syncmodel.ClassTimestamp:
		return "TIMESTAMPTZ"
	case syncmodel.ClassNumeric:
		return "NUMERIC"
	default:
		return "TEXT"
	}
}
