package syncengine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/syncengine/pkg/kvstore"
	"github.com/user/syncengine/pkg/runlog"
	"github.com/user/syncengine/pkg/sink"
	"github.com/user/syncengine/pkg/syncerr"
	"github.com/user/syncengine/pkg/syncmodel"
	"github.com/user/syncengine/pkg/warehouse"
)

type stubWarehouse struct {
	metadata          syncmodel.Schema
	pages             [][]warehouse.Row
	pageIdx           int
	sheets            [][][]any
	updateSchemaCalls [][]string
	loadModes         []string
	loadSchemas       []syncmodel.Schema
}

func (s *stubWarehouse) GetMetadata(ctx context.Context, project, dataset, table string) (syncmodel.Schema, error) {
	return s.metadata, nil
}

func (s *stubWarehouse) QueryPaginated(ctx context.Context, project, sqlText string, forceStringSet map[string]bool, params []warehouse.QueryParameter, yield func(warehouse.Row) error) error {
	if s.pageIdx >= len(s.pages) {
		return nil
	}
	page := s.pages[s.pageIdx]
	s.pageIdx++
	for _, row := range page {
		if err := yield(row); err != nil {
			return err
		}
	}
	return nil
}

func (s *stubWarehouse) LoadNDJSON(ctx context.Context, project, dataset, table string, ndjson []byte, mode string, schema syncmodel.Schema) (*warehouse.LoadJobResult, error) {
	s.loadModes = append(s.loadModes, mode)
	s.loadSchemas = append(s.loadSchemas, schema)
	return &warehouse.LoadJobResult{}, nil
}

func (s *stubWarehouse) UpdateSchema(ctx context.Context, project, dataset, table string, newColumns []string) error {
	s.updateSchemaCalls = append(s.updateSchemaCalls, newColumns)
	return nil
}

func (s *stubWarehouse) ReadSheetRange(ctx context.Context, spreadsheetID, a1Range string) ([][]any, error) {
	if len(s.sheets) == 0 {
		return nil, nil
	}
	page := s.sheets[0]
	s.sheets = s.sheets[1:]
	return page, nil
}

type stubSink struct {
	describeSchema syncmodel.Schema
	lastValue      any
	hasConstraint  bool
	upserted       []sink.Row
	deleted        [][]any
	deleteCalls    int
}

func (s *stubSink) Upsert(ctx context.Context, table string, rows []sink.Row, conflictColumns []string) error {
	s.upserted = append(s.upserted, rows...)
	return nil
}

func (s *stubSink) ExecDDL(ctx context.Context, statement string) error { return nil }

func (s *stubSink) ExecQuery(ctx context.Context, sqlText string) ([]map[string]any, error) {
	return nil, nil
}

func (s *stubSink) LastValue(ctx context.Context, table, column string) (any, error) {
	return s.lastValue, nil
}

func (s *stubSink) Describe(ctx context.Context, table string) (syncmodel.Schema, error) {
	return s.describeSchema, nil
}

func (s *stubSink) HasConstraint(ctx context.Context, table, name string) (bool, error) {
	return s.hasConstraint, nil
}

func (s *stubSink) Delete(ctx context.Context, table string, keyColumns []string, keyTuples [][]any) (int, error) {
	s.deleteCalls++
	s.deleted = append(s.deleted, keyTuples...)
	return len(keyTuples), nil
}

func newTestEngine(t *testing.T, wh Warehouse, sk Sink) *Engine {
	t.Helper()
	store, err := kvstore.NewSQLiteStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	jobs := syncmodel.NewKVJobStore(store)
	runState := syncmodel.NewKVRunStateStore(store)
	logger := runlog.New(store)
	return New(wh, sk, runState, jobs, logger, nil, nil)
}

func baseJob() syncmodel.Job {
	return syncmodel.Job{
		ID:                "job-1",
		Type:              syncmodel.JobWarehouseToSink,
		SourceProject:     "proj",
		SourceDataset:     "ds",
		SourceTable:       "orders",
		SinkTable:         "orders",
		IncrementalColumn: "updated_at",
		UpsertColumns:     []string{"id"},
	}
}

func TestRunBatchSinglePageSucceeds(t *testing.T) {
	wh := &stubWarehouse{
		metadata: syncmodel.Schema{{Name: "id", Class: syncmodel.ClassInt}, {Name: "updated_at", Class: syncmodel.ClassTimestamp}},
		pages: [][]warehouse.Row{
			{
				{"id": 1, "updated_at": "2026-01-01 00:00:00"},
				{"id": 2, "updated_at": "2026-01-02 00:00:00"},
			},
		},
	}
	sk := &stubSink{describeSchema: syncmodel.Schema{{Name: "id", Class: syncmodel.ClassInt}, {Name: "updated_at", Class: syncmodel.ClassTimestamp}}}
	engine := newTestEngine(t, wh, sk)

	result, err := engine.RunBatch(context.Background(), baseJob(), "", 1)
	require.NoError(t, err)
	assert.False(t, result.HasMore)
	assert.Equal(t, 2, result.RowsUpserted)
	assert.Len(t, sk.upserted, 2)
	assert.Equal(t, syncmodel.PhaseSuccess, result.Phase)
}

func TestRunBatchFullPageRequestsResume(t *testing.T) {
	fullPage := make([]warehouse.Row, FetchPageLimit)
	for i := range fullPage {
		fullPage[i] = warehouse.Row{"id": i, "updated_at": "2026-01-01 00:00:00"}
	}
	wh := &stubWarehouse{
		metadata: syncmodel.Schema{{Name: "id", Class: syncmodel.ClassInt}, {Name: "updated_at", Class: syncmodel.ClassTimestamp}},
		pages:    [][]warehouse.Row{fullPage},
	}
	sk := &stubSink{}
	engine := newTestEngine(t, wh, sk)

	result, err := engine.RunBatch(context.Background(), baseJob(), "", 1)
	require.NoError(t, err)
	assert.True(t, result.HasMore)
	assert.Equal(t, 2, result.NextBatch)
	assert.Equal(t, syncmodel.PhasePersist, result.Phase)
}

func TestRunBatchResumeWithoutStateFailsRunExpired(t *testing.T) {
	wh := &stubWarehouse{}
	sk := &stubSink{}
	engine := newTestEngine(t, wh, sk)

	_, err := engine.RunBatch(context.Background(), baseJob(), "nonexistent-run", 2)
	require.Error(t, err)
	var syncErr *syncerr.Error
	require.True(t, asSyncErr(err, &syncErr))
	assert.Equal(t, syncerr.KindRunExpired, syncErr.Kind)
}

func TestRunDeleteDetectionSkipsOnEmptySource(t *testing.T) {
	wh := &stubWarehouse{pages: [][]warehouse.Row{{}}}
	sk := &stubSink{}
	engine := newTestEngine(t, wh, sk)

	deleted, err := engine.runDeleteDetection(context.Background(), baseJob(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
	assert.Equal(t, 0, sk.deleteCalls)
}

func TestSummarizeFormatsMinutesAndSeconds(t *testing.T) {
	s := summarize(100, 5, 125*time.Second)
	assert.Equal(t, "100 rows synced, 5 deleted in 2m 5s", s)
}
