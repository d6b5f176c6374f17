package syncengine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/user/syncengine/pkg/syncerr"
	"github.com/user/syncengine/pkg/syncmodel"
)

// runSheetBatch drives the spreadsheet->warehouse engine fork (spec §4.4
// "Spreadsheet→Warehouse variant"): same state machine, Upsert replaced by a
// schema-aware NDJSON load.
func (e *Engine) runSheetBatch(ctx context.Context, job syncmodel.Job, runID string, batchNumber int) (syncmodel.BatchResult, error) {
	var state syncmodel.RunState
	var err error

	if batchNumber <= 1 {
		state, err = e.reconcileSheet(ctx, job, runID)
	} else {
		var ok bool
		state, ok, err = e.State.LoadRunState(ctx, job.ID, runID)
		if err == nil && !ok {
			err = syncerr.New(syncerr.KindRunExpired, "no run state found for batch > 1")
		}
	}
	if err != nil {
		return syncmodel.BatchResult{RunID: runID, JobID: job.ID, BatchNumber: batchNumber, Phase: syncmodel.PhaseFailed}, err
	}

	startRow := state.SheetRowOffset + 1
	endRow := startRow + SheetRowsPerPage - 1
	a1Range := fmt.Sprintf("%s!A%d:ZZ%d", job.SheetRange, startRow, endRow)
	rows, err := e.Warehouse.ReadSheetRange(ctx, job.SheetSpreadsheetID, a1Range)
	if err != nil {
		return syncmodel.BatchResult{RunID: runID, JobID: job.ID, BatchNumber: batchNumber, Phase: syncmodel.PhaseFetch}, err
	}
	e.logEvent(ctx, job.ID, runID, "INFO", syncmodel.PhaseFetch, "sheet page fetched", map[string]any{"rows": len(rows)})

	headerNames := make([]string, len(state.SourceSchema))
	for i, f := range state.SourceSchema {
		headerNames[i] = f.Name
	}

	var loadSchema syncmodel.Schema
	if state.IsNewSheetTable && batchNumber <= 1 {
		loadSchema = inferSheetSchema(headerNames, rows)
	} else if !state.IsNewSheetTable {
		newCols := newSheetColumns(headerNames, state.DestinationColumns)
		if len(newCols) > 0 {
			if err := e.Warehouse.UpdateSchema(ctx, job.SourceProject, job.SourceDataset, job.SourceTable, newCols); err != nil {
				return syncmodel.BatchResult{RunID: runID, JobID: job.ID, BatchNumber: batchNumber, Phase: syncmodel.PhaseUpsert}, err
			}
		}
	}

	ndjson, err := buildSheetNDJSON(headerNames, rows)
	if err != nil {
		return syncmodel.BatchResult{RunID: runID, JobID: job.ID, BatchNumber: batchNumber, Phase: syncmodel.PhaseUpsert}, syncerr.Wrap(syncerr.KindConfigInvalid, "build ndjson", err)
	}

	mode := "append"
	if !job.SheetAppend && batchNumber <= 1 {
		mode = "truncate"
	}

	if len(ndjson) > 0 {
		if _, err := e.Warehouse.LoadNDJSON(ctx, job.SourceProject, job.SourceDataset, job.SourceTable, ndjson, mode, loadSchema); err != nil {
			return syncmodel.BatchResult{RunID: runID, JobID: job.ID, BatchNumber: batchNumber, Phase: syncmodel.PhaseUpsert}, err
		}
	}
	e.Metrics.RowsUpserted(job.ID, len(rows))

	rowsUpsertedTotal := state.RowsUpserted + len(rows)
	hasMore := len(rows) == SheetRowsPerPage

	state.BatchNumber = batchNumber
	state.SheetRowOffset = endRow
	state.RowsUpserted = rowsUpsertedTotal
	state.HasMore = hasMore

	if hasMore {
		state.Phase = syncmodel.PhasePersist
		if err := e.State.SaveRunState(ctx, state); err != nil {
			return syncmodel.BatchResult{}, syncerr.Wrap(syncerr.KindConfigInvalid, "persist run state", err)
		}
		return syncmodel.BatchResult{
			RunID:        runID,
			JobID:        job.ID,
			BatchNumber:  batchNumber,
			Phase:        syncmodel.PhasePersist,
			RowsUpserted: len(rows),
			HasMore:      true,
			NextBatch:    batchNumber + 1,
		}, nil
	}

	summary := summarize(rowsUpsertedTotal, 0, e.Clock().Sub(state.StartedAt))
	e.succeedRun(ctx, &job, runID, summary)
	return syncmodel.BatchResult{
		RunID:        runID,
		JobID:        job.ID,
		BatchNumber:  batchNumber,
		Phase:        syncmodel.PhaseSuccess,
		RowsUpserted: len(rows),
		HasMore:      false,
		Summary:      summary,
	}, nil
}

// reconcileSheet runs the Init→Reconcile transition for a spreadsheet
// job's batch 1: read the header row, sanitize it, and probe the warehouse
// destination table (spec §4.4 Reconcile).
func (e *Engine) reconcileSheet(ctx context.Context, job syncmodel.Job, runID string) (syncmodel.RunState, error) {
	headerRange := fmt.Sprintf("%s!A1:ZZ1", job.SheetRange)
	headerRows, err := e.Warehouse.ReadSheetRange(ctx, job.SheetSpreadsheetID, headerRange)
	if err != nil {
		return syncmodel.RunState{}, err
	}
	if len(headerRows) == 0 {
		return syncmodel.RunState{}, syncerr.New(syncerr.KindConfigInvalid, "sheet has no header row")
	}

	rawHeaders := headerRows[0]
	sanitized := make(syncmodel.Schema, len(rawHeaders))
	for i, h := range rawHeaders {
		sanitized[i] = syncmodel.SchemaField{Name: sanitizeHeader(stringify(h)), Class: syncmodel.ClassString, Nullable: true}
	}

	isNew := false
	var destCols []string
	destSchema, err := e.Warehouse.GetMetadata(ctx, job.SourceProject, job.SourceDataset, job.SourceTable)
	if err != nil {
		if syncerr.Is(err, syncerr.KindNotFound) {
			isNew = true
		} else {
			return syncmodel.RunState{}, err
		}
	} else {
		destCols = make([]string, len(destSchema))
		for i, f := range destSchema {
			destCols[i] = f.Name
		}
	}

	state := syncmodel.RunState{
		RunID:              runID,
		JobID:              job.ID,
		BatchNumber:        1,
		Phase:              syncmodel.PhaseReconcile,
		StartedAt:          e.Clock(),
		SourceSchema:       sanitized,
		SchemaReconciled:   true,
		IsNewSheetTable:    isNew,
		SheetRowOffset:     1,
		DestinationColumns: destCols,
	}
	if err := e.State.SaveRunState(ctx, state); err != nil {
		return syncmodel.RunState{}, syncerr.Wrap(syncerr.KindConfigInvalid, "save run state after reconcile", err)
	}
	e.logEvent(ctx, job.ID, runID, "INFO", syncmodel.PhaseReconcile, "sheet header reconciled",
		map[string]any{"columns": len(sanitized), "isNewTable": isNew})
	return state, nil
}

// newSheetColumns returns headers present in the current sheet read but
// absent from the known destination columns, in header order.
func newSheetColumns(headers, known []string) []string {
	knownSet := make(map[string]bool, len(known))
	for _, k := range known {
		knownSet[strings.ToLower(k)] = true
	}
	var added []string
	for _, h := range headers {
		if !knownSet[strings.ToLower(h)] {
			added = append(added, h)
		}
	}
	return added
}

// buildSheetNDJSON renders a page of sheet rows as newline-delimited JSON,
// coercing timestamp-looking cells to "YYYY-MM-DD HH:MM:SS" and empty
// strings to null (spec §4.4 Upsert replacement).
func buildSheetNDJSON(headers []string, rows [][]any) ([]byte, error) {
	var buf strings.Builder
	for _, row := range rows {
		record := make(map[string]any, len(headers))
		for i, header := range headers {
			var cell any
			if i < len(row) {
				cell = row[i]
			}
			record[header] = coerceSheetCell(cell)
		}
		data, err := json.Marshal(record)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return []byte(buf.String()), nil
}

func coerceSheetCell(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if s == "" {
		return nil
	}
	if timestampValuePattern.MatchString(s) {
		return normalizeTimestamp(s)
	}
	return s
}

// normalizeTimestamp coerces a date/time cell to "YYYY-MM-DD HH:MM:SS",
// tolerating a "T" separator as emitted by some spreadsheet exports.
// Anything after the seconds (fractions, zone suffix) is dropped.
func normalizeTimestamp(s string) string {
	if len(s) < 19 {
		return s
	}
	return s[:10] + " " + s[11:19]
}
