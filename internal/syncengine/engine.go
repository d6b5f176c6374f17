package syncengine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/user/syncengine/internal/enginemetrics"
	"github.com/user/syncengine/pkg/obslog"
	"github.com/user/syncengine/pkg/runlog"
	"github.com/user/syncengine/pkg/syncerr"
	"github.com/user/syncengine/pkg/syncmodel"
)

// Page bounds and batching constants (spec §4.4).
const (
	FetchPageLimit         = 5000
	UpsertSubBatchSize     = 2500
	SheetRowsPerPage       = 5000
	SchemaPropagationDelay = time.Second
)

// Engine is the Sync Engine: the state machine driving one batch of one
// run for either job shape.
type Engine struct {
	Warehouse Warehouse
	Sink      Sink
	State     syncmodel.RunStateStore
	Jobs      syncmodel.JobStore
	Logger    *runlog.Logger
	Metrics   enginemetrics.Recorder
	Log       obslog.Logger
	Clock     func() time.Time
	NewRunID  func() string
}

// New builds an Engine with sensible defaults for Clock and NewRunID.
func New(warehouseClient Warehouse, sinkClient Sink, state syncmodel.RunStateStore, jobs syncmodel.JobStore, logger *runlog.Logger, metrics enginemetrics.Recorder, log obslog.Logger) *Engine {
	if metrics == nil {
		metrics = enginemetrics.Nop{}
	}
	if log == nil {
		log = obslog.Nop{}
	}
	return &Engine{
		Warehouse: warehouseClient,
		Sink:      sinkClient,
		State:     state,
		Jobs:      jobs,
		Logger:    logger,
		Metrics:   metrics,
		Log:       log,
		Clock:     time.Now,
		NewRunID:  uuid.NewString,
	}
}

// RunBatch executes one invocation slice of a run (spec §4.4 run_batch).
func (e *Engine) RunBatch(ctx context.Context, job syncmodel.Job, runID string, batchNumber int) (syncmodel.BatchResult, error) {
	started := e.Clock()
	result, err := e.runBatch(ctx, job, runID, batchNumber)
	e.Metrics.ObserveBatchDuration(job.ID, result.Phase, e.Clock().Sub(started).Seconds())
	if err != nil {
		e.Metrics.BatchRun(job.ID, "error")
		var syncErr *syncerr.Error
		kind := "unknown"
		if asSyncErr(err, &syncErr) {
			kind = string(syncErr.Kind)
		}
		e.Metrics.RunFailed(job.ID, kind)
		e.failJob(ctx, &job, runID, err)
		return result, err
	}
	e.Metrics.BatchRun(job.ID, "success")
	return result, nil
}

func (e *Engine) runBatch(ctx context.Context, job syncmodel.Job, runID string, batchNumber int) (syncmodel.BatchResult, error) {
	if runID == "" {
		runID = e.NewRunID()
	}

	if batchNumber <= 1 {
		if err := e.Logger.StartRun(ctx, job.ID, runID, e.Clock()); err != nil {
			return syncmodel.BatchResult{}, syncerr.Wrap(syncerr.KindConfigInvalid, "start run log", err)
		}
		e.logEvent(ctx, job.ID, runID, "INFO", syncmodel.PhaseInit, "run started", nil)
	}

	switch job.Type {
	case syncmodel.JobSheetToWarehouse:
		return e.runSheetBatch(ctx, job, runID, batchNumber)
	default:
		return e.runWarehouseBatch(ctx, job, runID, batchNumber)
	}
}

func (e *Engine) logEvent(ctx context.Context, jobID, runID, level, phase, message string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["phase"] = phase
	if err := e.Logger.Log(ctx, jobID, runID, level, message, fields); err != nil {
		e.Log.Warn("run log write failed", "job", jobID, "run", runID, "err", err)
	}
}

func (e *Engine) failJob(ctx context.Context, job *syncmodel.Job, runID string, err error) {
	job.LastStatus = "error"
	job.LastError = err.Error()
	if putErr := e.Jobs.PutJob(ctx, *job); putErr != nil {
		e.Log.Error("failed to persist job failure", "job", job.ID, "err", putErr)
	}
	e.logEvent(ctx, job.ID, runID, "ERROR", syncmodel.PhaseFailed, err.Error(), nil)
	if endErr := e.Logger.EndRun(ctx, job.ID, runID, "error"); endErr != nil {
		e.Log.Error("failed to end run log", "job", job.ID, "run", runID, "err", endErr)
	}
}

func (e *Engine) succeedRun(ctx context.Context, job *syncmodel.Job, runID, summary string) {
	job.LastStatus = "success"
	job.LastError = ""
	job.LastSummary = summary
	if err := e.Jobs.PutJob(ctx, *job); err != nil {
		e.Log.Error("failed to persist job success", "job", job.ID, "err", err)
	}
	e.logEvent(ctx, job.ID, runID, "SUCCESS", syncmodel.PhaseSuccess, summary, nil)
	if err := e.Logger.EndRun(ctx, job.ID, runID, "success"); err != nil {
		e.Log.Error("failed to end run log", "job", job.ID, "run", runID, "err", err)
	}
	if err := e.State.DeleteRunState(ctx, job.ID, runID); err != nil {
		e.Log.Error("failed to delete run state", "job", job.ID, "run", runID, "err", err)
	}
}

func summarize(rowsUpserted, rowsDeleted int, elapsed time.Duration) string {
	minutes := int(elapsed.Minutes())
	seconds := int(elapsed.Seconds()) % 60
	return fmt.Sprintf("%d rows synced, %d deleted in %dm %ds", rowsUpserted, rowsDeleted, minutes, seconds)
}

func asSyncErr(err error, target **syncerr.Error) bool {
	for err != nil {
		if se, ok := err.(*syncerr.Error); ok {
			*target = se
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
