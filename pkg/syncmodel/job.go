// Package syncmodel holds the data-model entities of the sync engine
// (spec §3): Job, Run, RunState, SchemaField, CursorTuple, and LogEntry.
package syncmodel

// JobType selects the engine variant a Job drives (spec §4.4).
type JobType string

const (
	JobWarehouseToSink  JobType = "bq-to-supabase"
	JobSheetToWarehouse JobType = "sheets-to-bq"
)

// OnDateTie resolves the Open Question in spec §9 about strict '>' on a
// DATE-typed incremental column: Skip preserves the documented behavior
// (a partial day's later rows can be skipped by the next run's read of
// last-sync-value); Reprocess widens batch 1's filter to '>=' and relies on
// upsert idempotence to absorb the boundary row again.
type OnDateTie string

const (
	OnDateTieSkip      OnDateTie = "skip"
	OnDateTieReprocess OnDateTie = "reprocess"
)

// Job is a configured synchronization (spec §3, §6).
type Job struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	Enabled     bool    `json:"enabled"`
	Type        JobType `json:"type"`

	// Warehouse source locator.
	SourceProject string `json:"sourceProject,omitempty"`
	SourceDataset string `json:"sourceDataset,omitempty"`
	SourceTable   string `json:"sourceTable,omitempty"`

	// Sink locator.
	SinkTable string `json:"sinkTable"`

	IncrementalColumn string    `json:"incrementalColumn,omitempty"`
	ForceStringFields []string  `json:"forceStringFields,omitempty"`
	UpsertColumns     []string  `json:"upsertColumns"`
	OnDateTie         OnDateTie `json:"onDateTie,omitempty"`

	// Spreadsheet source locator (JobSheetToWarehouse only).
	SheetSpreadsheetID string `json:"sheetSpreadsheetId,omitempty"`
	SheetRange         string `json:"sheetRange,omitempty"`
	SheetAppend        bool   `json:"sheetAppend,omitempty"`

	// Scheduling dependency: this job's sweep slot waits for these job IDs
	// (expected to be JobSheetToWarehouse jobs) to finish in the same sweep.
	DependsOnSheetJobs []string `json:"dependsOnSheetJobs,omitempty"`

	CronSchedule string `json:"cronSchedule,omitempty"`

	LastStatus  string `json:"lastStatus,omitempty"`
	LastError   string `json:"lastError,omitempty"`
	LastSummary string `json:"lastSummary,omitempty"`
}

// EffectiveOnDateTie returns the job's tie policy with the documented
// default applied.
func (j *Job) EffectiveOnDateTie() OnDateTie {
	if j.OnDateTie == "" {
		return OnDateTieSkip
	}
	return j.OnDateTie
}

// TieBreaker is the first declared upsert column (spec GLOSSARY).
func (j *Job) TieBreaker() string {
	if len(j.UpsertColumns) == 0 {
		return ""
	}
	return j.UpsertColumns[0]
}
