package warehouse

import (
	"math"
	"strconv"

	"github.com/user/syncengine/pkg/syncmodel"
)

// Row is one result row keyed by column name, as returned by QueryPaginated.
type Row map[string]any

// classForBigQueryType maps a BigQuery field-schema type string onto the
// engine's FieldClass vocabulary (spec §4.1 "(added) BigQuery type mapping
// detail"), falling back to string for anything unrecognized.
func classForBigQueryType(t string) syncmodel.FieldClass {
	switch t {
	case "STRING":
		return syncmodel.ClassString
	case "INTEGER", "INT64":
		return syncmodel.ClassInt
	case "FLOAT", "FLOAT64":
		return syncmodel.ClassFloat
	case "BOOLEAN", "BOOL":
		return syncmodel.ClassBool
	case "DATE":
		return syncmodel.ClassDate
	case "DATETIME":
		return syncmodel.ClassDatetime
	case "TIMESTAMP":
		return syncmodel.ClassTimestamp
	case "NUMERIC", "BIGNUMERIC":
		return syncmodel.ClassNumeric
	default:
		return syncmodel.ClassString
	}
}

// safeIntegerLimit is the largest magnitude integer a JSON number can carry
// without losing precision (2^53 - 1).
const safeIntegerLimit = 1<<53 - 1

// decodeCell converts a raw BigQuery cell string for a field of the given
// type into the Go value QueryPaginated should yield, honoring the
// force_string_set override.
func decodeCell(class syncmodel.FieldClass, fieldName string, raw string, forceString map[string]bool) any {
	if raw == "" {
		return nil
	}
	if forceString[fieldName] {
		return raw
	}
	switch class {
	case syncmodel.ClassInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return raw
		}
		if n > safeIntegerLimit || n < -safeIntegerLimit {
			return raw
		}
		return n
	case syncmodel.ClassFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) {
			return raw
		}
		return f
	case syncmodel.ClassBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return raw
		}
		return b
	default:
		return raw
	}
}
