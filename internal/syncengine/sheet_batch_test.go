package syncengine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/syncengine/pkg/syncerr"
	"github.com/user/syncengine/pkg/syncmodel"
)

func sheetJob() syncmodel.Job {
	return syncmodel.Job{
		ID:                 "sheet-1",
		Type:               syncmodel.JobSheetToWarehouse,
		SourceProject:      "proj",
		SourceDataset:      "ds",
		SourceTable:        "orders_raw",
		SheetSpreadsheetID: "sheet-abc",
		SheetRange:         "Sheet1",
		UpsertColumns:      []string{"order_id"},
	}
}

type notFoundWarehouse struct {
	stubWarehouse
}

func (w *notFoundWarehouse) GetMetadata(ctx context.Context, project, dataset, table string) (syncmodel.Schema, error) {
	return nil, syncerr.New(syncerr.KindNotFound, "table not found")
}

func TestRunSheetBatchNewTableInfersSchemaAndTruncates(t *testing.T) {
	wh := &notFoundWarehouse{stubWarehouse{
		sheets: [][][]any{
			{{"Order ID", "Revenue"}},
			{{"1", "10.5"}, {"2", "20"}},
		},
	}}
	sk := &stubSink{}
	engine := newTestEngine(t, wh, sk)

	job := sheetJob()
	result, err := engine.RunBatch(context.Background(), job, "", 1)
	require.NoError(t, err)
	assert.False(t, result.HasMore)
	assert.Equal(t, 2, result.RowsUpserted)
	assert.Equal(t, syncmodel.PhaseSuccess, result.Phase)
	require.Len(t, wh.loadModes, 1)
	assert.Equal(t, "truncate", wh.loadModes[0])
	require.Len(t, wh.loadSchemas[0], 2)
	assert.Equal(t, syncmodel.ClassInt, wh.loadSchemas[0][0].Class)
	assert.Equal(t, syncmodel.ClassFloat, wh.loadSchemas[0][1].Class)
}

func TestRunSheetBatchFullPageRequestsResume(t *testing.T) {
	fullPage := make([][]any, SheetRowsPerPage)
	for i := range fullPage {
		fullPage[i] = []any{"1", "10"}
	}
	wh := &notFoundWarehouse{stubWarehouse{
		sheets: [][][]any{
			{{"Order ID", "Revenue"}},
			fullPage,
		},
	}}
	sk := &stubSink{}
	engine := newTestEngine(t, wh, sk)

	result, err := engine.RunBatch(context.Background(), sheetJob(), "", 1)
	require.NoError(t, err)
	assert.True(t, result.HasMore)
	assert.Equal(t, 2, result.NextBatch)
}

func TestBuildSheetNDJSONCoercesEmptyAndTimestampCells(t *testing.T) {
	headers := []string{"order_id", "placed_at", "note"}
	rows := [][]any{
		{"1", "2026-01-01T10:00:00", ""},
	}
	ndjson, err := buildSheetNDJSON(headers, rows)
	require.NoError(t, err)
	out := string(ndjson)
	assert.True(t, strings.Contains(out, `"placed_at":"2026-01-01 10:00:00"`))
	assert.True(t, strings.Contains(out, `"note":null`))
}

func TestRunSheetBatchExistingTableUpdatesSchemaOnNewHeader(t *testing.T) {
	wh := &stubWarehouse{
		metadata: syncmodel.Schema{{Name: "order_id", Class: syncmodel.ClassString}, {Name: "revenue", Class: syncmodel.ClassString}},
		sheets: [][][]any{
			{{"Order ID", "Revenue", "Region"}},
			{{"1", "10.5", "west"}},
		},
	}
	sk := &stubSink{}
	engine := newTestEngine(t, wh, sk)

	job := sheetJob()
	result, err := engine.RunBatch(context.Background(), job, "", 1)
	require.NoError(t, err)
	assert.Equal(t, syncmodel.PhaseSuccess, result.Phase)
	require.Len(t, wh.updateSchemaCalls, 1)
	assert.Equal(t, []string{"region"}, wh.updateSchemaCalls[0])
}

func TestNewSheetColumnsFindsHeadersNotInKnownSet(t *testing.T) {
	added := newSheetColumns([]string{"order_id", "region", "revenue"}, []string{"order_id", "revenue"})
	assert.Equal(t, []string{"region"}, added)
}
