package syncmodel

import "context"

// RunStateStore persists RunState checkpoints keyed by job and run. It is
// implemented on top of pkg/kvstore's generic TTL store using the
// sync_state:{job}:{run} key layout (spec §6).
type RunStateStore interface {
	SaveRunState(ctx context.Context, state RunState) error
	LoadRunState(ctx context.Context, jobID, runID string) (RunState, bool, error)
	DeleteRunState(ctx context.Context, jobID, runID string) error
}

// JobStore persists Job configurations, keyed by job id (spec §6,
// "job:{id}", no TTL).
type JobStore interface {
	GetJob(ctx context.Context, id string) (Job, bool, error)
	ListJobs(ctx context.Context) ([]Job, error)
	PutJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, id string) error
}
