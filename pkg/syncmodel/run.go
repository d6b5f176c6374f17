package syncmodel

import "time"

// RunState is the persisted checkpoint for one in-progress or finished run
// (spec §4.6). It is what pkg/kvstore stores under sync_state:{job}:{run}.
type RunState struct {
	RunID       string    `json:"runId"`
	JobID       string    `json:"jobId"`
	BatchNumber int       `json:"batchNumber"`
	Phase       string    `json:"phase"`
	StartedAt   time.Time `json:"startedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Composite cursor of the last row upserted.
	Cursor CursorTuple `json:"cursor"`

	// LastSyncValue is the incremental-column baseline read from the sink
	// at Reconcile time; the batch-1 filter is inc > LastSyncValue.
	LastSyncValue string `json:"lastSyncValue,omitempty"`

	// SourceSchema is the batch-1 metadata snapshot, immutable for the
	// rest of the run (invariant I1).
	SourceSchema Schema `json:"sourceSchema,omitempty"`

	RowsUpserted int `json:"rowsUpserted"`
	RowsDeleted  int `json:"rowsDeleted"`

	// SchemaReconciled is set once the current run has already run DDL
	// reconciliation, so later batches in the same run skip it.
	SchemaReconciled bool `json:"schemaReconciled"`

	// SheetRowOffset tracks progress through a sheet->warehouse job.
	SheetRowOffset int `json:"sheetRowOffset,omitempty"`

	// IsNewSheetTable records whether the spreadsheet variant's Reconcile
	// found no existing sink table (controls load mode and schema supply).
	IsNewSheetTable bool `json:"isNewSheetTable,omitempty"`

	// DestinationColumns is the warehouse destination table's actual column
	// names as of Reconcile, for a spreadsheet job writing into an existing
	// table. Distinct from SourceSchema, which holds the sheet's own header
	// snapshot: new-column detection diffs the header against this field,
	// not against itself.
	DestinationColumns []string `json:"destinationColumns,omitempty"`

	HasMore bool `json:"hasMore"`

	Error string `json:"error,omitempty"`
}

// CursorTuple is the composite incremental-column / tie-breaker pair used
// to resume a paginated scan (spec GLOSSARY: "composite cursor").
type CursorTuple struct {
	IncrementalValue string `json:"incrementalValue"`
	TieBreakerValue  string `json:"tieBreakerValue"`
}

// Empty reports whether the cursor has never been advanced.
func (c CursorTuple) Empty() bool {
	return c.IncrementalValue == "" && c.TieBreakerValue == ""
}

// Run phases, in the order the state machine moves through them (spec
// §4.4).
const (
	PhaseInit            = "init"
	PhaseReconcile       = "reconcile"
	PhaseFetch           = "fetch"
	PhaseUpsert          = "upsert"
	PhasePersist         = "persist"
	PhaseFinalDeleteScan = "final_delete_scan"
	PhaseSuccess         = "success"
	PhaseFailed          = "failed"
)

// BatchResult is returned by one RunBatch invocation and tells the caller
// whether to schedule another batch immediately.
type BatchResult struct {
	RunID        string `json:"runId"`
	JobID        string `json:"jobId"`
	BatchNumber  int    `json:"batchNumber"`
	Phase        string `json:"phase"`
	RowsUpserted int    `json:"rowsUpserted"`
	RowsDeleted  int    `json:"rowsDeleted"`
	HasMore      bool   `json:"hasMore"`
	NextBatch    int    `json:"nextBatch,omitempty"`
	Summary      string `json:"summary,omitempty"`
	Error        string `json:"error,omitempty"`
}
