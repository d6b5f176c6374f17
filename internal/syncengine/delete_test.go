package syncengine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/syncengine/pkg/syncerr"
	"github.com/user/syncengine/pkg/warehouse"
)

type sinkKeyScanStub struct {
	stubSink
	pages [][]map[string]any
	idx   int
}

func (s *sinkKeyScanStub) ExecQuery(ctx context.Context, sqlText string) ([]map[string]any, error) {
	if s.idx >= len(s.pages) {
		return nil, nil
	}
	page := s.pages[s.idx]
	s.idx++
	return page, nil
}

func TestRunDeleteDetectionTripsRunawayGate(t *testing.T) {
	job := baseJob()
	wh := &stubWarehouse{pages: [][]warehouse.Row{
		{{"id": 1}},
	}}
	sk := &sinkKeyScanStub{pages: [][]map[string]any{
		{{"id": 1}, {"id": 2}, {"id": 3}, {"id": 4}},
	}}
	engine := newTestEngine(t, wh, sk)

	_, err := engine.runDeleteDetection(context.Background(), job, "run-1")
	require.Error(t, err)
	var syncErr *syncerr.Error
	require.True(t, asSyncErr(err, &syncErr))
	assert.Equal(t, syncerr.KindDestructiveAnomaly, syncErr.Kind)
	assert.Equal(t, 0, sk.deleteCalls)
}

func TestRunDeleteDetectionDeletesOnlyMissingKeys(t *testing.T) {
	job := baseJob()
	wh := &stubWarehouse{pages: [][]warehouse.Row{
		{{"id": 1}, {"id": 2}, {"id": 3}},
	}}
	sk := &sinkKeyScanStub{pages: [][]map[string]any{
		{{"id": 1}, {"id": 2}, {"id": 3}, {"id": 99}},
	}}
	engine := newTestEngine(t, wh, sk)

	deleted, err := engine.runDeleteDetection(context.Background(), job, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	require.Len(t, sk.deleted, 1)
	assert.Equal(t, any(99), sk.deleted[0][0])
}

func TestScanSinkKeysStopsOnShortPage(t *testing.T) {
	job := baseJob()
	sk := &sinkKeyScanStub{pages: [][]map[string]any{
		{{"id": 1}, {"id": 2}},
	}}
	engine := newTestEngine(t, &stubWarehouse{}, sk)

	keys, err := engine.scanSinkKeys(context.Background(), job)
	require.NoError(t, err)
	assert.Len(t, keys, 2)
	assert.Equal(t, 1, sk.idx)
}
