package runlog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/syncengine/pkg/kvstore"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	store, err := kvstore.NewSQLiteStore("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(store)
}

func TestRedactSensitiveKeys(t *testing.T) {
	fields := map[string]any{
		"api_key":  "sekret",
		"password": "hunter2",
		"rows":     3,
	}
	redacted := Redact(fields)
	assert.Equal(t, "[REDACTED]", redacted["api_key"])
	assert.Equal(t, "[REDACTED]", redacted["password"])
	assert.Equal(t, 3, redacted["rows"])
}

func TestRedactTruncatesLongStrings(t *testing.T) {
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	redacted := Redact(map[string]any{"blob": string(long)})
	val := redacted["blob"].(string)
	assert.True(t, len(val) < 2000)
	assert.Contains(t, val, "...")
}

func TestRedactCircularStructure(t *testing.T) {
	m := map[string]any{"name": "job"}
	m["self"] = m
	redacted := Redact(m)
	inner, ok := redacted["self"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "circular", inner["error"])
}

func TestLoggerStartEndListRuns(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger(t)

	require.NoError(t, logger.StartRun(ctx, "job-1", "run-1", time.Now()))
	require.NoError(t, logger.EndRun(ctx, "job-1", "run-1", "success"))

	runs, err := logger.ListRuns(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "success", runs[0].Status)
}

func TestLoggerLogAndRead(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger(t)

	require.NoError(t, logger.Log(ctx, "job-1", "run-1", "INFO", "starting", nil))
	require.NoError(t, logger.Log(ctx, "job-1", "run-1", "INFO", "done", map[string]any{"rows": 10}))

	entries, err := logger.Read(ctx, "job-1", "run-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "starting", entries[0].Message)
	assert.Equal(t, "done", entries[1].Message)
}

func TestLoggerClear(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger(t)
	require.NoError(t, logger.Log(ctx, "job-1", "run-1", "INFO", "hello", nil))
	require.NoError(t, logger.Clear(ctx, "job-1", "run-1"))
	entries, err := logger.Read(ctx, "job-1", "run-1", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
