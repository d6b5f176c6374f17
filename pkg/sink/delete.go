package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/user/syncengine/pkg/sqlutil"
	"github.com/user/syncengine/pkg/syncerr"
)

// DeleteChunkSize bounds each DELETE statement to stay under URL/parameter
// limits (spec §4.2 delete: "chunks of 200 tuples").
const DeleteChunkSize = 200

// Delete removes every row whose keyColumns tuple matches one of keyTuples,
// returning the total number of rows affected. Chunks keyTuples by
// DeleteChunkSize. Unlike the spec's described quote-escaped disjunction
// form, every value is passed as a real bound parameter (Open Question
// decision, spec §9) rather than interpolated into the SQL text.
func (c *Client) Delete(ctx context.Context, table string, keyColumns []string, keyTuples [][]any) (int, error) {
	if len(keyTuples) == 0 {
		return 0, nil
	}

	qTable, err := sqlutil.QuoteIdent(Driver, table)
	if err != nil {
		return 0, syncerr.Wrap(syncerr.KindConfigInvalid, "quote table", err)
	}
	qColumns := make([]string, len(keyColumns))
	for i, col := range keyColumns {
		qc, err := sqlutil.QuoteIdent(Driver, col)
		if err != nil {
			return 0, syncerr.Wrap(syncerr.KindConfigInvalid, "quote key column", err)
		}
		qColumns[i] = qc
	}

	total := 0
	for start := 0; start < len(keyTuples); start += DeleteChunkSize {
		end := start + DeleteChunkSize
		if end > len(keyTuples) {
			end = len(keyTuples)
		}
		chunk := keyTuples[start:end]

		stmt, args := buildDeleteStatement(qTable, qColumns, chunk)
		tag, err := c.pool.Exec(ctx, stmt, args...)
		if err != nil {
			return total, syncerr.Wrap(syncerr.KindSinkDeleteFailed, "delete chunk", err)
		}
		total += int(tag.RowsAffected())
	}
	return total, nil
}

// buildDeleteStatement emits `WHERE col IN ($1, $2, ...)` for a single-column
// key, or a row-value `WHERE (a, b) IN (($1, $2), ...)` for composite keys.
func buildDeleteStatement(qTable string, qColumns []string, chunk [][]any) (string, []any) {
	if len(qColumns) == 1 {
		args := make([]any, len(chunk))
		for i, tuple := range chunk {
			args[i] = tuple[0]
		}
		placeholders := make([]string, len(args))
		for i := range args {
			placeholders[i] = sqlutil.Placeholder(Driver, i+1)
		}
		stmt := fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)", qTable, qColumns[0], strings.Join(placeholders, ", "))
		return stmt, args
	}

	var args []any
	var groups []string
	idx := 1
	for _, tuple := range chunk {
		placeholders := make([]string, len(qColumns))
		for i := range qColumns {
			placeholders[i] = sqlutil.Placeholder(Driver, idx)
			args = append(args, tuple[i])
			idx++
		}
		groups = append(groups, "("+strings.Join(placeholders, ", ")+")")
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE (%s) IN (%s)", qTable, strings.Join(qColumns, ", "), strings.Join(groups, ", "))
	return stmt, args
}
