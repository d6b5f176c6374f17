package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/syncengine/internal/syncengine"
	"github.com/user/syncengine/pkg/kvstore"
	"github.com/user/syncengine/pkg/runlog"
	"github.com/user/syncengine/pkg/sink"
	"github.com/user/syncengine/pkg/syncmodel"
	"github.com/user/syncengine/pkg/warehouse"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	store, err := kvstore.NewSQLiteStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	jobs := syncmodel.NewKVJobStore(store)
	logger := runlog.New(store)
	runState := syncmodel.NewKVRunStateStore(store)
	engine := syncengine.New(&fakeWarehouse{}, &fakeSink{}, runState, jobs, logger, nil, nil)

	s := New(jobs, logger, engine, "secret-token")
	mux := http.NewServeMux()
	s.Routes(mux)
	return s, httptest.NewServer(mux)
}

func TestAuthEndpoint(t *testing.T) {
	_, srv := newTestServer(t)
	defer srv.Close()

	body, _ := json.Marshal(map[string]string{"key": "secret-token"})
	resp, err := http.Post(srv.URL+"/api/auth", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ = json.Marshal(map[string]string{"key": "wrong"})
	resp, err = http.Post(srv.URL+"/api/auth", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestConfigsRequireBearer(t *testing.T) {
	_, srv := newTestServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/configs")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/configs", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateAndListConfig(t *testing.T) {
	_, srv := newTestServer(t)
	defer srv.Close()

	job := syncmodel.Job{DisplayName: "orders mirror", Type: syncmodel.JobWarehouseToSink, UpsertColumns: []string{"id"}, SinkTable: "orders"}
	body, _ := json.Marshal(job)
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/configs", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret-token")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var created map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, true, created["success"])

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/configs", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	var jobs []syncmodel.Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, "orders mirror", jobs[0].DisplayName)
}

func TestOrderByDependency(t *testing.T) {
	sheetJob := syncmodel.Job{ID: "sheet-1"}
	warehouseJob := syncmodel.Job{ID: "wh-1", DependsOnSheetJobs: []string{"sheet-1"}}

	ordered := orderByDependency([]syncmodel.Job{warehouseJob, sheetJob})
	require.Len(t, ordered, 2)
	assert.Equal(t, "sheet-1", ordered[0].ID)
	assert.Equal(t, "wh-1", ordered[1].ID)
}

func TestValidateCronExpression(t *testing.T) {
	assert.NoError(t, ValidateCronExpression("*/5 * * * *"))
	assert.Error(t, ValidateCronExpression("not-a-cron"))
}

type fakeWarehouse struct{}

func (fakeWarehouse) GetMetadata(ctx context.Context, project, dataset, table string) (syncmodel.Schema, error) {
	return syncmodel.Schema{{Name: "id", Class: syncmodel.ClassInt}}, nil
}
func (fakeWarehouse) QueryPaginated(ctx context.Context, project, sql string, forceStringSet map[string]bool, params []warehouse.QueryParameter, yield func(warehouse.Row) error) error {
	return nil
}
func (fakeWarehouse) LoadNDJSON(ctx context.Context, project, dataset, table string, ndjson []byte, mode string, schema syncmodel.Schema) (*warehouse.LoadJobResult, error) {
	return &warehouse.LoadJobResult{}, nil
}
func (fakeWarehouse) UpdateSchema(ctx context.Context, project, dataset, table string, newColumns []string) error {
	return nil
}
func (fakeWarehouse) ReadSheetRange(ctx context.Context, spreadsheetID, a1Range string) ([][]any, error) {
	return nil, nil
}

type fakeSink struct{}

func (fakeSink) Upsert(ctx context.Context, table string, rows []sink.Row, conflictColumns []string) error {
	return nil
}
func (fakeSink) ExecDDL(ctx context.Context, statement string) error { return nil }
func (fakeSink) ExecQuery(ctx context.Context, sqlText string) ([]map[string]any, error) {
	return nil, nil
}
func (fakeSink) LastValue(ctx context.Context, table, column string) (any, error) { return nil, nil }
func (fakeSink) Describe(ctx context.Context, table string) (syncmodel.Schema, error) {
	return nil, nil
}
func (fakeSink) HasConstraint(ctx context.Context, table, name string) (bool, error) {
	return true, nil
}
func (fakeSink) Delete(ctx context.Context, table string, keyColumns []string, keyTuples [][]any) (int, error) {
	return 0, nil
}
