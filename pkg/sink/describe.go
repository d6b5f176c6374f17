package sink

import (
	"context"

	"github.com/user/syncengine/pkg/reconcile"
	"github.com/user/syncengine/pkg/syncerr"
	"github.com/user/syncengine/pkg/syncmodel"
)

// Describe returns the sink's columns mapped back to source-equivalent
// type classes, excluding the engine-owned synced_at column.
func (c *Client) Describe(ctx context.Context, table string) (syncmodel.Schema, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		if isUndefinedTable(err) {
			return syncmodel.Schema{}, nil
		}
		return nil, syncerr.Wrap(syncerr.KindSinkUnavailable, "describe table", err)
	}
	defer rows.Close()

	var fields syncmodel.Schema
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, syncerr.Wrap(syncerr.KindSinkUnavailable, "scan describe row", err)
		}
		if lowerEqual(name, reconcile.SyncedAtColumn) {
			continue
		}
		fields = append(fields, syncmodel.SchemaField{
			Name:     name,
			Class:    classForPGType(dataType),
			Nullable: nullable == "YES",
		})
	}
	if err := rows.Err(); err != nil {
		return nil, syncerr.Wrap(syncerr.KindSinkUnavailable, "iterate describe rows", err)
	}
	return fields, nil
}

func lowerEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func classForPGType(dataType string) syncmodel.FieldClass {
	switch dataType {
	case "bigint", "integer", "smallint":
		return syncmodel.ClassInt
	case "double precision", "real":
		return syncmodel.ClassFloat
	case "boolean":
		return syncmodel.ClassBool
	case "date":
		return syncmodel.ClassDate
	case "timestamp without time zone":
		return syncmodel.ClassDatetime
	case "timestamp with time zone":
		return syncmodel.ClassTimestamp
	case "numeric":
		return syncmodel.ClassNumeric
	default:
		return syncmodel.ClassString
	}
}
