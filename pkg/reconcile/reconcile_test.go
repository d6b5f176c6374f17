package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/syncengine/pkg/syncmodel"
)

func TestDetectChanges(t *testing.T) {
	source := syncmodel.Schema{
		{Name: "id", Class: syncmodel.ClassInt},
		{Name: "Email", Class: syncmodel.ClassString},
		{Name: "created_at", Class: syncmodel.ClassTimestamp},
	}
	sink := syncmodel.Schema{
		{Name: "ID", Class: syncmodel.ClassInt},
		{Name: "legacy_flag", Class: syncmodel.ClassBool},
		{Name: "synced_at", Class: syncmodel.ClassTimestamp},
	}

	drift := DetectChanges(source, sink)

	require.Len(t, drift.ToAdd, 2)
	names := []string{drift.ToAdd[0].Name, drift.ToAdd[1].Name}
	assert.ElementsMatch(t, []string{"Email", "created_at"}, names)

	require.Len(t, drift.ToDrop, 1)
	assert.Equal(t, "legacy_flag", drift.ToDrop[0].Name)
}

func TestDetectChangesNeverDropsSyncedAt(t *testing.T) {
	source := syncmodel.Schema{{Name: "id", Class: syncmodel.ClassInt}}
	sink := syncmodel.Schema{
		{Name: "id", Class: syncmodel.ClassInt},
		{Name: "SYNCED_AT", Class: syncmodel.ClassTimestamp},
	}
	drift := DetectChanges(source, sink)
	assert.Empty(t, drift.ToDrop)
}

func TestValidateUpsertKeys(t *testing.T) {
	source := syncmodel.Schema{
		{Name: "ID", Class: syncmodel.ClassInt},
		{Name: "email", Class: syncmodel.ClassString},
	}
	result := ValidateUpsertKeys([]string{"id", "missing_col"}, source)
	assert.False(t, result.OK)
	assert.Equal(t, []string{"missing_col"}, result.Invalid)

	result = ValidateUpsertKeys([]string{"id", "email"}, source)
	assert.True(t, result.OK)
	assert.Empty(t, result.Invalid)
}

func TestCreateTableDDL(t *testing.T) {
	fields := syncmodel.Schema{
		{Name: "id", Class: syncmodel.ClassInt},
		{Name: "email", Class: syncmodel.ClassString},
	}
	ddl, err := CreateTableDDL("pgx", "customers", fields, []string{"id"})
	require.NoError(t, err)
	assert.Contains(t, ddl, `CREATE TABLE IF NOT EXISTS "customers"`)
	assert.Contains(t, ddl, `"id" BIGINT`)
	assert.Contains(t, ddl, `"email" TEXT`)
	assert.Contains(t, ddl, `synced_at TIMESTAMPTZ DEFAULT now()`)
	assert.Contains(t, ddl, `CONSTRAINT "customers_unique_idx" UNIQUE ("id")`)
}

func TestAlterTableDDL(t *testing.T) {
	drift := Drift{
		ToAdd:  []syncmodel.SchemaField{{Name: "phone", Class: syncmodel.ClassString}},
		ToDrop: []syncmodel.SchemaField{{Name: "legacy_flag", Class: syncmodel.ClassBool}},
	}
	stmts, err := AlterTableDDL("pgx", "customers", drift)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], `ADD COLUMN IF NOT EXISTS "phone" TEXT`)
	assert.Contains(t, stmts[1], `DROP COLUMN IF EXISTS "legacy_flag"`)
}
