package syncengine

import (
	"context"
	"fmt"

	"github.com/user/syncengine/pkg/sink"
	"github.com/user/syncengine/pkg/syncerr"
	"github.com/user/syncengine/pkg/syncmodel"
	"github.com/user/syncengine/pkg/warehouse"
)

func (e *Engine) runWarehouseBatch(ctx context.Context, job syncmodel.Job, runID string, batchNumber int) (syncmodel.BatchResult, error) {
	var state syncmodel.RunState
	var err error

	if batchNumber <= 1 {
		state, err = e.reconcileWarehouse(ctx, job, runID)
	} else {
		var ok bool
		state, ok, err = e.State.LoadRunState(ctx, job.ID, runID)
		if err == nil && !ok {
			err = syncerr.New(syncerr.KindRunExpired, "no run state found for batch > 1")
		} else if err == nil && !state.SchemaReconciled {
			err = syncerr.New(syncerr.KindSchemaIncomplete, "schema reconciliation did not complete on batch 1")
		}
	}
	if err != nil {
		return syncmodel.BatchResult{RunID: runID, JobID: job.ID, BatchNumber: batchNumber, Phase: syncmodel.PhaseFailed}, err
	}

	incCol, tieCol := effectiveCursorColumns(job)
	query, params := buildFetchQuery(job, incCol, tieCol, state.LastSyncValue, state.Cursor, batchNumber, state.SourceSchema)
	forceStringSet := toSet(job.ForceStringFields)

	var page []warehouse.Row
	err = e.Warehouse.QueryPaginated(ctx, job.SourceProject, query, forceStringSet, params, func(r warehouse.Row) error {
		page = append(page, r)
		return nil
	})
	if err != nil {
		return syncmodel.BatchResult{RunID: runID, JobID: job.ID, BatchNumber: batchNumber, Phase: syncmodel.PhaseFetch}, err
	}
	e.logEvent(ctx, job.ID, runID, "INFO", syncmodel.PhaseFetch, "page fetched", map[string]any{"rows": len(page)})

	if err := e.upsertPage(ctx, job, page); err != nil {
		return syncmodel.BatchResult{RunID: runID, JobID: job.ID, BatchNumber: batchNumber, Phase: syncmodel.PhaseUpsert}, err
	}
	e.Metrics.RowsUpserted(job.ID, len(page))

	rowsUpsertedTotal := state.RowsUpserted + len(page)

	if len(page) == FetchPageLimit {
		newCursor := cursorFromRow(page[len(page)-1], incCol, tieCol)
		state.BatchNumber = batchNumber
		state.Cursor = newCursor
		state.RowsUpserted = rowsUpsertedTotal
		state.Phase = syncmodel.PhasePersist
		if err := e.State.SaveRunState(ctx, state); err != nil {
			return syncmodel.BatchResult{}, syncerr.Wrap(syncerr.KindConfigInvalid, "persist run state", err)
		}
		return syncmodel.BatchResult{
			RunID:        runID,
			JobID:        job.ID,
			BatchNumber:  batchNumber,
			Phase:        syncmodel.PhasePersist,
			RowsUpserted: len(page),
			HasMore:      true,
			NextBatch:    batchNumber + 1,
		}, nil
	}

	rowsDeleted, err := e.runDeleteDetection(ctx, job, runID)
	if err != nil {
		return syncmodel.BatchResult{RunID: runID, JobID: job.ID, BatchNumber: batchNumber, Phase: syncmodel.PhaseFinalDeleteScan}, err
	}
	e.Metrics.RowsDeleted(job.ID, rowsDeleted)

	summary := summarize(rowsUpsertedTotal, rowsDeleted, e.Clock().Sub(state.StartedAt))
	e.succeedRun(ctx, &job, runID, summary)

	return syncmodel.BatchResult{
		RunID:        runID,
		JobID:        job.ID,
		BatchNumber:  batchNumber,
		Phase:        syncmodel.PhaseSuccess,
		RowsUpserted: len(page),
		RowsDeleted:  rowsDeleted,
		HasMore:      false,
		Summary:      summary,
	}, nil
}

// upsertPage partitions page into sequential sub-batches (spec §4.4
// Fetch → Upsert: sub-batches of 2500 rows, sequential).
func (e *Engine) upsertPage(ctx context.Context, job syncmodel.Job, page []warehouse.Row) error {
	for start := 0; start < len(page); start += UpsertSubBatchSize {
		end := start + UpsertSubBatchSize
		if end > len(page) {
			end = len(page)
		}
		rows := make([]sink.Row, end-start)
		for i, r := range page[start:end] {
			rows[i] = sink.Row(r)
		}
		if err := e.Sink.Upsert(ctx, job.SinkTable, rows, job.UpsertColumns); err != nil {
			return err
		}
	}
	return nil
}

func cursorFromRow(row warehouse.Row, incCol, tieCol string) syncmodel.CursorTuple {
	return syncmodel.CursorTuple{
		IncrementalValue: stringify(row[incCol]),
		TieBreakerValue:  stringify(row[tieCol]),
	}
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
