package syncmodel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/user/syncengine/pkg/kvstore"
)

// RunStateTTL is how long a run's checkpoint survives in the store once
// written (spec §6: sync_state:{job}:{run}, 24h).
const RunStateTTL = 24 * time.Hour

// kvRunStateStore implements RunStateStore over a kvstore.Store.
type kvRunStateStore struct {
	store kvstore.Store
}

// NewKVRunStateStore adapts a kvstore.Store to RunStateStore.
func NewKVRunStateStore(store kvstore.Store) RunStateStore {
	return &kvRunStateStore{store: store}
}

func runStateKey(jobID, runID string) string {
	return fmt.Sprintf("sync_state:%s:%s", jobID, runID)
}

func (s *kvRunStateStore) SaveRunState(ctx context.Context, state RunState) error {
	state.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, runStateKey(state.JobID, state.RunID), data, RunStateTTL)
}

func (s *kvRunStateStore) LoadRunState(ctx context.Context, jobID, runID string) (RunState, bool, error) {
	data, ok, err := s.store.Get(ctx, runStateKey(jobID, runID))
	if err != nil || !ok {
		return RunState{}, ok, err
	}
	var state RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return RunState{}, false, err
	}
	return state, true, nil
}

func (s *kvRunStateStore) DeleteRunState(ctx context.Context, jobID, runID string) error {
	return s.store.Delete(ctx, runStateKey(jobID, runID))
}

// kvJobStore implements JobStore over a kvstore.Store.
type kvJobStore struct {
	store kvstore.Store
}

// NewKVJobStore adapts a kvstore.Store to JobStore.
func NewKVJobStore(store kvstore.Store) JobStore {
	return &kvJobStore{store: store}
}

func jobKey(id string) string { return "job:" + id }

func (s *kvJobStore) GetJob(ctx context.Context, id string) (Job, bool, error) {
	data, ok, err := s.store.Get(ctx, jobKey(id))
	if err != nil || !ok {
		return Job{}, ok, err
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return Job{}, false, err
	}
	return job, true, nil
}

func (s *kvJobStore) ListJobs(ctx context.Context) ([]Job, error) {
	keys, err := s.store.List(ctx, "job:")
	if err != nil {
		return nil, err
	}
	jobs := make([]Job, 0, len(keys))
	for _, k := range keys {
		data, ok, err := s.store.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		var job Job
		if err := json.Unmarshal(data, &job); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *kvJobStore) PutJob(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, jobKey(job.ID), data, 0)
}

func (s *kvJobStore) DeleteJob(ctx context.Context, id string) error {
	return s.store.Delete(ctx, jobKey(id))
}
