package syncengine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/user/syncengine/pkg/reconcile"
	"github.com/user/syncengine/pkg/sink"
	"github.com/user/syncengine/pkg/syncerr"
	"github.com/user/syncengine/pkg/syncmodel"
)

// reconcileWarehouse runs the Init→Reconcile transition for a
// warehouse->sink job's batch 1 (spec §4.4).
func (e *Engine) reconcileWarehouse(ctx context.Context, job syncmodel.Job, runID string) (syncmodel.RunState, error) {
	sourceFields, err := e.Warehouse.GetMetadata(ctx, job.SourceProject, job.SourceDataset, job.SourceTable)
	if err != nil {
		return syncmodel.RunState{}, err
	}

	createDDL, err := reconcile.CreateTableDDL(sink.Driver, job.SinkTable, sourceFields, job.UpsertColumns)
	if err != nil {
		return syncmodel.RunState{}, syncerr.Wrap(syncerr.KindConfigInvalid, "build create table ddl", err)
	}
	if err := e.Sink.ExecDDL(ctx, createDDL); err != nil {
		return syncmodel.RunState{}, err
	}
	e.Metrics.ObserveDDL(job.ID, "create", 1)

	validation := reconcile.ValidateUpsertKeys(job.UpsertColumns, sourceFields)
	if !validation.OK {
		return syncmodel.RunState{}, syncerr.New(syncerr.KindConfigInvalid,
			fmt.Sprintf("upsert columns not present in source schema: %s", strings.Join(validation.Invalid, ", ")))
	}

	sinkFields, err := e.Sink.Describe(ctx, job.SinkTable)
	if err != nil {
		return syncmodel.RunState{}, err
	}
	drift := reconcile.DetectChanges(sourceFields, sinkFields)
	alterStmts, err := reconcile.AlterTableDDL(sink.Driver, job.SinkTable, drift)
	if err != nil {
		return syncmodel.RunState{}, syncerr.Wrap(syncerr.KindConfigInvalid, "build alter table ddl", err)
	}
	for _, stmt := range alterStmts {
		if err := e.Sink.ExecDDL(ctx, stmt); err != nil {
			return syncmodel.RunState{}, err
		}
	}
	if len(alterStmts) > 0 {
		e.Metrics.ObserveDDL(job.ID, "alter", len(alterStmts))
		select {
		case <-ctx.Done():
			return syncmodel.RunState{}, ctx.Err()
		case <-time.After(SchemaPropagationDelay):
		}
	}

	if len(job.UpsertColumns) > 0 {
		has, err := e.Sink.HasConstraint(ctx, job.SinkTable, reconcile.UniqueIndexName(job.SinkTable))
		if err != nil {
			return syncmodel.RunState{}, err
		}
		if !has {
			constraintDDL, err := reconcile.UniqueConstraintDDL(sink.Driver, job.SinkTable, job.UpsertColumns)
			if err != nil {
				return syncmodel.RunState{}, syncerr.Wrap(syncerr.KindConfigInvalid, "build unique constraint ddl", err)
			}
			if err := e.Sink.ExecDDL(ctx, constraintDDL); err != nil {
				return syncmodel.RunState{}, err
			}
			e.Metrics.ObserveDDL(job.ID, "constraint", 1)
		}
	}

	// Only an incremental column has a meaningful "last synced value" to
	// resume from; a job keyed purely on its upsert columns must see every
	// row again each run so deletes and re-ordered keys are still caught
	// (spec §4.4: "When the job has no incremental column, omit the filter
	// and order by the upsert key").
	lastSyncValue := ""
	if job.IncrementalColumn != "" {
		lastValue, err := e.Sink.LastValue(ctx, job.SinkTable, job.IncrementalColumn)
		if err != nil {
			return syncmodel.RunState{}, err
		}
		if lastValue != nil {
			lastSyncValue = fmt.Sprint(lastValue)
		}
	}

	state := syncmodel.RunState{
		RunID:            runID,
		JobID:            job.ID,
		BatchNumber:      1,
		Phase:            syncmodel.PhaseReconcile,
		StartedAt:        e.Clock(),
		SourceSchema:     sourceFields,
		LastSyncValue:    lastSyncValue,
		SchemaReconciled: true,
	}
	if err := e.State.SaveRunState(ctx, state); err != nil {
		return syncmodel.RunState{}, syncerr.Wrap(syncerr.KindConfigInvalid, "save run state after reconcile", err)
	}
	e.logEvent(ctx, job.ID, runID, "INFO", syncmodel.PhaseReconcile, "schema reconciled",
		map[string]any{"added": len(drift.ToAdd), "dropped": len(drift.ToDrop)})
	return state, nil
}
