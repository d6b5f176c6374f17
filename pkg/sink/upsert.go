package sink

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/user/syncengine/pkg/sqlutil"
	"github.com/user/syncengine/pkg/syncerr"
)

// Row is one record to upsert, keyed by column name.
type Row map[string]any

// Upsert performs an atomic upsert of rows against a unique constraint over
// conflictColumns. No-op for empty rows (spec §4.2).
func (c *Client) Upsert(ctx context.Context, table string, rows []Row, conflictColumns []string) error {
	if len(rows) == 0 {
		return nil
	}

	columns := columnUnion(rows)
	stmt, args, err := buildUpsertStatement(table, columns, rows, conflictColumns)
	if err != nil {
		return syncerr.Wrap(syncerr.KindConfigInvalid, "build upsert statement", err)
	}

	if _, err := c.pool.Exec(ctx, stmt, args...); err != nil {
		return syncerr.Wrap(syncerr.KindSinkUpsertFailed, "upsert", err)
	}
	return nil
}

// columnUnion returns the sorted union of all keys across rows, so a page
// with sparse/optional fields still produces one consistent column list.
func columnUnion(rows []Row) []string {
	seen := make(map[string]bool)
	for _, r := range rows {
		for k := range r {
			seen[k] = true
		}
	}
	columns := make([]string, 0, len(seen))
	for k := range seen {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	return columns
}

// buildUpsertStatement builds a single multi-row
// INSERT ... ON CONFLICT (conflict_columns) DO UPDATE SET ...
// using a VALUES list bound with real parameters (spec §4.2 upsert),
// grounded on the teacher's upsertMapped in pkg/sink/postgres/postgres.go.
// A pure-VALUES form is used uniformly rather than pgx's unnest-array
// bulk-bind shape, since rows here are heterogeneous maps rather than
// pre-typed columnar slices the unnest form requires.
func buildUpsertStatement(table string, columns []string, rows []Row, conflictColumns []string) (string, []any, error) {
	qTable, err := sqlutil.QuoteIdent(Driver, table)
	if err != nil {
		return "", nil, err
	}
	qColumns := make([]string, len(columns))
	for i, col := range columns {
		qc, err := sqlutil.QuoteIdent(Driver, col)
		if err != nil {
			return "", nil, err
		}
		qColumns[i] = qc
	}
	qConflict := make([]string, len(conflictColumns))
	for i, col := range conflictColumns {
		qc, err := sqlutil.QuoteIdent(Driver, col)
		if err != nil {
			return "", nil, err
		}
		qConflict[i] = qc
	}

	var args []any
	var valueGroups []string
	placeholderIndex := 1
	for _, row := range rows {
		placeholders := make([]string, len(columns))
		for i, col := range columns {
			placeholders[i] = sqlutil.Placeholder(Driver, placeholderIndex)
			placeholderIndex++
			args = append(args, row[col])
		}
		valueGroups = append(valueGroups, "("+strings.Join(placeholders, ", ")+")")
	}

	conflictSet := make([]string, 0, len(columns))
	for _, col := range columns {
		if containsFold(conflictColumns, col) {
			continue
		}
		qc, err := sqlutil.QuoteIdent(Driver, col)
		if err != nil {
			return "", nil, err
		}
		conflictSet = append(conflictSet, fmt.Sprintf("%s = EXCLUDED.%s", qc, qc))
	}
	conflictSet = append(conflictSet, "synced_at = now()")

	stmt := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s ON CONFLICT (%s) DO UPDATE SET %s",
		qTable,
		strings.Join(qColumns, ", "),
		strings.Join(valueGroups, ", "),
		strings.Join(qConflict, ", "),
		strings.Join(conflictSet, ", "),
	)
	return stmt, args, nil
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if lowerEqual(item, s) {
			return true
		}
	}
	return false
}
