// Package runlog implements the Run Logger (spec §4.5): structured,
// redacted log entries keyed by (job, run, timestamp), persisted to a
// pkg/kvstore-backed KV store with TTL, with a run index per job.
package runlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/user/syncengine/pkg/kvstore"
	"github.com/user/syncengine/pkg/syncmodel"
)

// EntryTTL and IndexTTL are the spec §4.5 retention windows.
const (
	EntryTTL = 24 * time.Hour
	IndexTTL = 30 * 24 * time.Hour
)

// MaxEntriesPerRun caps how many log entries one run persists; the rest
// are written to stderr only (spec §4.5).
const MaxEntriesPerRun = 500

// RunIndexEntry is one row of a job's run index.
type RunIndexEntry struct {
	RunID     string    `json:"runId"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt,omitempty"`
	Status    string    `json:"status"`
}

// Logger is the Run Logger.
type Logger struct {
	store kvstore.Store
}

// New builds a Logger over store.
func New(store kvstore.Store) *Logger {
	return &Logger{store: store}
}

// entryPrefix and indexKey follow the spec §6 key layout: logs:{jobId}:{runId}
// for a run's entries and jobRuns:{jobId} for its run index.
func entryPrefix(jobID, runID string) string {
	return fmt.Sprintf("logs:%s:%s:", jobID, runID)
}

func entryKey(jobID, runID string, seq int) string {
	return fmt.Sprintf("%s%06d", entryPrefix(jobID, runID), seq)
}

func countKey(jobID, runID string) string {
	return fmt.Sprintf("logCount:%s:%s", jobID, runID)
}

func indexKey(jobID string) string {
	return "jobRuns:" + jobID
}

// StartRun records a run's start in the job's run index.
func (l *Logger) StartRun(ctx context.Context, jobID, runID string, startedAt time.Time) error {
	index, err := l.loadIndex(ctx, jobID)
	if err != nil {
		return err
	}
	index = append(index, RunIndexEntry{RunID: runID, StartedAt: startedAt, Status: "running"})
	return l.saveIndex(ctx, jobID, index)
}

// EndRun records a run's terminal status in the job's run index.
func (l *Logger) EndRun(ctx context.Context, jobID, runID, status string) error {
	index, err := l.loadIndex(ctx, jobID)
	if err != nil {
		return err
	}
	for i := range index {
		if index[i].RunID == runID {
			index[i].Status = status
			index[i].EndedAt = time.Now().UTC()
		}
	}
	return l.saveIndex(ctx, jobID, index)
}

// ListRuns returns the run index for job, most recent first.
func (l *Logger) ListRuns(ctx context.Context, jobID string) ([]RunIndexEntry, error) {
	index, err := l.loadIndex(ctx, jobID)
	if err != nil {
		return nil, err
	}
	sort.Slice(index, func(i, j int) bool { return index[i].StartedAt.After(index[j].StartedAt) })
	return index, nil
}

func (l *Logger) loadIndex(ctx context.Context, jobID string) ([]RunIndexEntry, error) {
	data, ok, err := l.store.Get(ctx, indexKey(jobID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var index []RunIndexEntry
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, err
	}
	return index, nil
}

func (l *Logger) saveIndex(ctx context.Context, jobID string, index []RunIndexEntry) error {
	data, err := json.Marshal(index)
	if err != nil {
		return err
	}
	return l.store.Set(ctx, indexKey(jobID), data, IndexTTL)
}

// Log appends one entry to the run's log, redacting fields first. Past
// MaxEntriesPerRun the entry is written to stderr only.
func (l *Logger) Log(ctx context.Context, jobID, runID, level, message string, fields map[string]any) error {
	seq, err := l.nextSeq(ctx, jobID, runID)
	if err != nil {
		return err
	}

	entry := syncmodel.LogEntry{
		RunID:     runID,
		JobID:     jobID,
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   message,
		Fields:    Redact(fields),
	}

	if seq > MaxEntriesPerRun {
		fmt.Fprintf(os.Stderr, "run_log overflow job=%s run=%s level=%s msg=%s\n", jobID, runID, level, message)
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return l.store.Set(ctx, entryKey(jobID, runID, seq), data, EntryTTL)
}

func (l *Logger) nextSeq(ctx context.Context, jobID, runID string) (int, error) {
	data, ok, err := l.store.Get(ctx, countKey(jobID, runID))
	if err != nil {
		return 0, err
	}
	seq := 0
	if ok {
		seq, err = parseCount(data)
		if err != nil {
			return 0, err
		}
	}
	seq++
	if err := l.store.Set(ctx, countKey(jobID, runID), []byte(fmt.Sprintf("%d", seq)), EntryTTL); err != nil {
		return 0, err
	}
	return seq, nil
}

func parseCount(data []byte) (int, error) {
	var n int
	_, err := fmt.Sscanf(string(data), "%d", &n)
	return n, err
}

// Read returns up to limit entries for (job, run) in write order.
func (l *Logger) Read(ctx context.Context, jobID, runID string, limit int) ([]syncmodel.LogEntry, error) {
	keys, err := l.store.List(ctx, entryPrefix(jobID, runID))
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[len(keys)-limit:]
	}
	entries := make([]syncmodel.LogEntry, 0, len(keys))
	for _, k := range keys {
		data, ok, err := l.store.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		var entry syncmodel.LogEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Clear deletes a run's log entries. With an empty runID it clears every
// run's entries for the job that are still present in the store.
func (l *Logger) Clear(ctx context.Context, jobID, runID string) error {
	prefix := fmt.Sprintf("logs:%s:", jobID)
	if runID != "" {
		prefix = entryPrefix(jobID, runID)
	}
	keys, err := l.store.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := l.store.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}
