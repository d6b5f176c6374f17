package syncengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/syncengine/pkg/syncmodel"
)

func TestEffectiveCursorColumnsPrefersIncrementalColumn(t *testing.T) {
	job := syncmodel.Job{IncrementalColumn: "updated_at", UpsertColumns: []string{"id", "region"}}
	inc, tie := effectiveCursorColumns(job)
	assert.Equal(t, "updated_at", inc)
	assert.Equal(t, "id", tie)
}

func TestEffectiveCursorColumnsFallsBackToCompositeUpsertKey(t *testing.T) {
	job := syncmodel.Job{UpsertColumns: []string{"id", "region"}}
	inc, tie := effectiveCursorColumns(job)
	assert.Equal(t, "id", inc)
	assert.Equal(t, "region", tie)
}

func TestEffectiveCursorColumnsSingleUpsertKeyUsesItTwice(t *testing.T) {
	job := syncmodel.Job{UpsertColumns: []string{"id"}}
	inc, tie := effectiveCursorColumns(job)
	assert.Equal(t, "id", inc)
	assert.Equal(t, "id", tie)
}

func TestBuildFetchQueryUsesCompositeCursorPredicateOnResume(t *testing.T) {
	job := syncmodel.Job{SourceProject: "p", SourceDataset: "d", SourceTable: "t", UpsertColumns: []string{"id"}}
	cursor := syncmodel.CursorTuple{IncrementalValue: "2026-01-01", TieBreakerValue: "row-9"}

	query, params := buildFetchQuery(job, "updated_at", "id", "2025-12-01", cursor, 2, nil)

	assert.Contains(t, query, "updated_at > @cursor_inc")
	assert.Contains(t, query, "updated_at = @cursor_inc AND id > @cursor_tie")
	require.Len(t, params, 2)
}

func TestBuildFetchQueryBatchOneUsesLastSyncValue(t *testing.T) {
	job := syncmodel.Job{SourceProject: "p", SourceDataset: "d", SourceTable: "t", UpsertColumns: []string{"id"}}
	query, params := buildFetchQuery(job, "updated_at", "id", "2025-12-01", syncmodel.CursorTuple{}, 1, nil)

	assert.Contains(t, query, "WHERE updated_at > @last_sync_value")
	require.Len(t, params, 1)
	assert.Equal(t, "2025-12-01", params[0].Value)
}

func TestBuildFetchQueryTypesParametersFromSchema(t *testing.T) {
	job := syncmodel.Job{
		SourceProject: "p", SourceDataset: "d", SourceTable: "t",
		IncrementalColumn: "placed_on", UpsertColumns: []string{"id"},
	}
	schema := syncmodel.Schema{
		{Name: "placed_on", Class: syncmodel.ClassDate},
		{Name: "id", Class: syncmodel.ClassInt},
	}
	cursor := syncmodel.CursorTuple{IncrementalValue: "2026-01-01", TieBreakerValue: "9"}

	_, params := buildFetchQuery(job, "placed_on", "id", "", cursor, 2, schema)
	require.Len(t, params, 2)
	assert.Equal(t, syncmodel.ClassDate, params[0].Class)
	assert.Equal(t, syncmodel.ClassInt, params[1].Class)
}

func TestBuildFetchQueryDateTieReprocessWidensBatchOneFilter(t *testing.T) {
	job := syncmodel.Job{
		SourceProject: "p", SourceDataset: "d", SourceTable: "t",
		UpsertColumns: []string{"id"}, OnDateTie: syncmodel.OnDateTieReprocess,
	}
	query, _ := buildFetchQuery(job, "updated_at", "id", "2025-12-01", syncmodel.CursorTuple{}, 1, nil)
	assert.Contains(t, query, "updated_at >= @last_sync_value")
}

func TestBuildKeyScanQueryProjectsOnlyUpsertColumns(t *testing.T) {
	job := syncmodel.Job{SourceProject: "p", SourceDataset: "d", SourceTable: "t", UpsertColumns: []string{"id", "region"}}
	query := buildKeyScanQuery(job)
	assert.Equal(t, "SELECT id, region FROM `p.d.t`", query)
}
