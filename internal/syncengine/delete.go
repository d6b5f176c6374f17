package syncengine

import (
	"context"
	"fmt"
	"strings"

	"github.com/user/syncengine/pkg/sqlutil"
	"github.com/user/syncengine/pkg/syncerr"
	"github.com/user/syncengine/pkg/syncmodel"
	"github.com/user/syncengine/pkg/warehouse"
)

// DeleteSinkPageSize is the OFFSET-pagination page size used to stream sink
// keys during delete detection (spec §4.4 step 3).
const DeleteSinkPageSize = 10000

// RunawayDeleteFraction is safety gate C's threshold: candidates exceeding
// this fraction of sink_keys trips DestructiveAnomaly.
const RunawayDeleteFraction = 0.5

// MaxDeleteScanKeys bounds how many keys delete detection will materialize
// from either side before failing closed (Open Question decision, spec §9:
// the spec asks for a bounded-memory procedure but does not name a limit).
const MaxDeleteScanKeys = 2_000_000

// runDeleteDetection removes sink rows whose unique-key tuple is no longer
// present in the source, bounded by memory and gated by three safety
// circuit breakers (spec §4.4 "Delete-detection sub-procedure").
func (e *Engine) runDeleteDetection(ctx context.Context, job syncmodel.Job, runID string) (int, error) {
	sourceKeys, err := e.scanSourceKeys(ctx, job)
	if err != nil {
		return 0, err
	}

	if len(sourceKeys) == 0 {
		e.logEvent(ctx, job.ID, runID, "WARNING", syncmodel.PhaseFinalDeleteScan,
			"source returned zero rows during delete scan; aborting delete detection", nil)
		e.Metrics.CircuitBreakerTrip(job.ID, "source_empty")
		return 0, nil
	}

	sinkKeys, err := e.scanSinkKeys(ctx, job)
	if err != nil {
		return 0, err
	}

	if len(sinkKeys) == 0 {
		return 0, nil
	}

	var candidates [][]any
	for key, tuple := range sinkKeys {
		if _, ok := sourceKeys[key]; !ok {
			candidates = append(candidates, tuple)
		}
	}

	if float64(len(candidates)) > RunawayDeleteFraction*float64(len(sinkKeys)) {
		e.Metrics.CircuitBreakerTrip(job.ID, "runaway_delete")
		return 0, syncerr.New(syncerr.KindDestructiveAnomaly,
			fmt.Sprintf("delete candidates (%d) exceed %.0f%% of sink keys (%d)", len(candidates), RunawayDeleteFraction*100, len(sinkKeys)))
	}

	if len(candidates) == 0 {
		return 0, nil
	}

	deleted, err := e.Sink.Delete(ctx, job.SinkTable, job.UpsertColumns, candidates)
	if err != nil {
		return 0, err
	}
	e.logEvent(ctx, job.ID, runID, "INFO", syncmodel.PhaseFinalDeleteScan, "rows deleted", map[string]any{"count": deleted})
	return deleted, nil
}

func (e *Engine) scanSourceKeys(ctx context.Context, job syncmodel.Job) (map[string]bool, error) {
	query := buildKeyScanQuery(job)
	keys := make(map[string]bool)
	err := e.Warehouse.QueryPaginated(ctx, job.SourceProject, query, nil, nil, func(row warehouse.Row) error {
		if len(keys) >= MaxDeleteScanKeys {
			return syncerr.New(syncerr.KindDeleteScanTooLarge, fmt.Sprintf("source key scan exceeded %d keys", MaxDeleteScanKeys))
		}
		key, err := canonicalKey(job.UpsertColumns, row)
		if err != nil {
			return err
		}
		keys[key] = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// scanSinkKeys pages through the sink projecting only the upsert columns,
// ordered by them, 10,000 rows per page, until a short page is received.
func (e *Engine) scanSinkKeys(ctx context.Context, job syncmodel.Job) (map[string][]any, error) {
	qTable, err := sqlutil.QuoteIdent("pgx", job.SinkTable)
	if err != nil {
		return nil, syncerr.Wrap(syncerr.KindConfigInvalid, "quote sink table", err)
	}
	qCols := make([]string, len(job.UpsertColumns))
	for i, col := range job.UpsertColumns {
		qc, err := sqlutil.QuoteIdent("pgx", col)
		if err != nil {
			return nil, syncerr.Wrap(syncerr.KindConfigInvalid, "quote upsert column", err)
		}
		qCols[i] = qc
	}
	colList := strings.Join(qCols, ", ")

	keys := make(map[string][]any)
	offset := 0
	for {
		sqlText := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s OFFSET %d LIMIT %d", colList, qTable, colList, offset, DeleteSinkPageSize)
		rows, err := e.Sink.ExecQuery(ctx, sqlText)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if len(keys) >= MaxDeleteScanKeys {
				return nil, syncerr.New(syncerr.KindDeleteScanTooLarge, fmt.Sprintf("sink key scan exceeded %d keys", MaxDeleteScanKeys))
			}
			tuple := make([]any, len(job.UpsertColumns))
			for i, col := range job.UpsertColumns {
				tuple[i] = row[col]
			}
			key, err := canonicalKey(job.UpsertColumns, row)
			if err != nil {
				return nil, err
			}
			keys[key] = tuple
		}
		if len(rows) < DeleteSinkPageSize {
			break
		}
		offset += DeleteSinkPageSize
	}
	return keys, nil
}
