package syncengine

import (
	"fmt"
	"strings"

	"github.com/user/syncengine/pkg/syncmodel"
	"github.com/user/syncengine/pkg/warehouse"
)

// effectiveCursorColumns resolves the (incremental, tie-breaker) column
// pair a job orders and resumes by (spec §3 Cursor Tuple, §4.4 Reconcile →
// Fetch: "When the job has no incremental column, omit the filter and
// order by the upsert key; resumption then uses the same compound-cursor
// form over the upsert-column pair").
func effectiveCursorColumns(job syncmodel.Job) (incCol, tieCol string) {
	if job.IncrementalColumn != "" {
		return job.IncrementalColumn, job.TieBreaker()
	}
	if len(job.UpsertColumns) > 1 {
		return job.UpsertColumns[0], job.UpsertColumns[1]
	}
	return job.UpsertColumns[0], job.UpsertColumns[0]
}

// buildFetchQuery composes the paginated extraction query for a
// warehouse->sink batch (spec §4.4 Reconcile → Fetch). schema supplies each
// cursor column's type class so the bound query parameters aren't all sent
// to BigQuery as STRING, which real typed columns (DATE, TIMESTAMP, ...)
// reject with no implicit coercion.
func buildFetchQuery(job syncmodel.Job, incCol, tieCol string, lastSyncValue string, cursor syncmodel.CursorTuple, batchNumber int, schema syncmodel.Schema) (string, []warehouse.QueryParameter) {
	table := fmt.Sprintf("`%s.%s.%s`", job.SourceProject, job.SourceDataset, job.SourceTable)
	var where string
	var params []warehouse.QueryParameter

	byName := schema.ByLowerName()
	incClass := byName[strings.ToLower(incCol)].Class
	tieClass := byName[strings.ToLower(tieCol)].Class

	hasCarriedCursor := batchNumber > 1 && !cursor.Empty()

	switch {
	case hasCarriedCursor:
		where = fmt.Sprintf("WHERE ((%s > @cursor_inc) OR (%s = @cursor_inc AND %s > @cursor_tie))", incCol, incCol, tieCol)
		params = []warehouse.QueryParameter{
			{Name: "cursor_inc", Value: cursor.IncrementalValue, Class: incClass},
			{Name: "cursor_tie", Value: cursor.TieBreakerValue, Class: tieClass},
		}
	case lastSyncValue != "":
		operator := ">"
		if job.EffectiveOnDateTie() == syncmodel.OnDateTieReprocess && batchNumber == 1 {
			operator = ">="
		}
		where = fmt.Sprintf("WHERE %s %s @last_sync_value", incCol, operator)
		params = []warehouse.QueryParameter{{Name: "last_sync_value", Value: lastSyncValue, Class: incClass}}
	default:
		where = ""
	}

	query := fmt.Sprintf("SELECT * FROM %s", table)
	if where != "" {
		query += "\n" + where
	}
	query += fmt.Sprintf("\nORDER BY %s ASC, %s ASC\nLIMIT %d", incCol, tieCol, FetchPageLimit)
	return query, params
}

// buildKeyScanQuery composes the projection-only query delete detection
// uses to fetch source keys with no incremental filter (spec §4.4
// delete-detection step 1).
func buildKeyScanQuery(job syncmodel.Job) string {
	table := fmt.Sprintf("`%s.%s.%s`", job.SourceProject, job.SourceDataset, job.SourceTable)
	cols := strings.Join(job.UpsertColumns, ", ")
	return fmt.Sprintf("SELECT %s FROM %s", cols, table)
}
