// Package syncengine implements the Sync Engine state machine (spec §4.4):
// the batch runner that drives schema reconciliation, cursor-based
// incremental extraction, batched upsert, and cross-system delete
// detection, across both the warehouse->sink and sheet->warehouse job
// shapes.
package syncengine

import (
	"context"

	"github.com/user/syncengine/pkg/sink"
	"github.com/user/syncengine/pkg/syncmodel"
	"github.com/user/syncengine/pkg/warehouse"
)

// Warehouse is the Source Client surface the engine depends on. Both
// *warehouse.Client and test fakes satisfy it.
type Warehouse interface {
	GetMetadata(ctx context.Context, project, dataset, table string) (syncmodel.Schema, error)
	QueryPaginated(ctx context.Context, project, sql string, forceStringSet map[string]bool, params []warehouse.QueryParameter, yield func(warehouse.Row) error) error
	LoadNDJSON(ctx context.Context, project, dataset, table string, ndjson []byte, mode string, schema syncmodel.Schema) (*warehouse.LoadJobResult, error)
	UpdateSchema(ctx context.Context, project, dataset, table string, newColumns []string) error
	ReadSheetRange(ctx context.Context, spreadsheetID, a1Range string) ([][]any, error)
}

// Sink is the Sink Client surface the engine depends on. Both *sink.Client
// and test fakes satisfy it.
type Sink interface {
	Upsert(ctx context.Context, table string, rows []sink.Row, conflictColumns []string) error
	ExecDDL(ctx context.Context, statement string) error
	ExecQuery(ctx context.Context, sqlText string) ([]map[string]any, error)
	LastValue(ctx context.Context, table, column string) (any, error)
	Describe(ctx context.Context, table string) (syncmodel.Schema, error)
	HasConstraint(ctx context.Context, table, name string) (bool, error)
	Delete(ctx context.Context, table string, keyColumns []string, keyTuples [][]any) (int, error)
}
