package sink

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/user/syncengine/pkg/sqlutil"
	"github.com/user/syncengine/pkg/syncerr"
)

// undefinedTableCode and undefinedColumnCode are the Postgres SQLSTATEs the
// sink coerces into "absent" rather than propagating as errors.
const (
	undefinedTableCode  = "42P01"
	undefinedColumnCode = "42703"
)

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTableCode
}

func isUndefinedColumn(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedColumnCode
}

// ExecDDL runs an arbitrary DDL statement. The spec's "privileged stored
// procedure" concept collapses to direct DDL privileges on the sink's
// Postgres role, since this engine owns that connection outright.
func (c *Client) ExecDDL(ctx context.Context, statement string) error {
	if _, err := c.pool.Exec(ctx, statement); err != nil {
		return syncerr.Wrap(syncerr.KindSinkDDLFailed, "exec ddl", err)
	}
	return nil
}

// ExecQuery runs a dynamic SELECT, returning rows keyed by column name. A
// "relation does not exist" error is coerced to an empty result.
func (c *Client) ExecQuery(ctx context.Context, sqlText string) ([]map[string]any, error) {
	rows, err := c.pool.Query(ctx, sqlText)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, nil
		}
		return nil, syncerr.Wrap(syncerr.KindSinkUnavailable, "exec query", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	var results []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, syncerr.Wrap(syncerr.KindSinkUnavailable, "scan query row", err)
		}
		row := make(map[string]any, len(values))
		for i, fd := range fieldDescs {
			row[string(fd.Name)] = values[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		if isUndefinedTable(err) {
			return nil, nil
		}
		return nil, syncerr.Wrap(syncerr.KindSinkUnavailable, "iterate query rows", err)
	}
	return results, nil
}

// HasConstraint reports whether table already carries a constraint named
// name, so callers can add the upsert-column uniqueness constraint exactly
// once regardless of whether table pre-dates this engine (spec §4.3: "add
// the uniqueness constraint iff absent").
func (c *Client) HasConstraint(ctx context.Context, table, name string) (bool, error) {
	var found bool
	row := c.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.table_constraints
			WHERE table_name = $1 AND constraint_name = $2
		)`, table, name)
	if err := row.Scan(&found); err != nil {
		if isUndefinedTable(err) {
			return false, nil
		}
		return false, syncerr.Wrap(syncerr.KindSinkUnavailable, "check constraint", err)
	}
	return found, nil
}

// LastValue returns the maximum value of column in table, or nil if the
// table is empty or absent.
func (c *Client) LastValue(ctx context.Context, table, column string) (any, error) {
	qTable, err := sqlutil.QuoteIdent(Driver, table)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindConfigInvalid, "quote table", err)
	}
	qColumn, err := sqlutil.QuoteIdent(Driver, column)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindConfigInvalid, "quote column", err)
	}

	var value any
	row := c.pool.QueryRow(ctx, "SELECT max("+qColumn+") FROM "+qTable)
	if err := row.Scan(&value); err != nil {
		if isUndefinedTable(err) || isUndefinedColumn(err) {
			return nil, nil
		}
		return nil, syncerr.Wrap(syncerr.KindSinkUnavailable, "last value", err)
	}
	return value, nil
}
