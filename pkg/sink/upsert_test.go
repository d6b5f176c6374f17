package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpsertStatement(t *testing.T) {
	rows := []Row{
		{"id": 1, "email": "a@example.com"},
		{"id": 2, "email": "b@example.com"},
	}
	stmt, args, err := buildUpsertStatement("customers", []string{"email", "id"}, rows, []string{"id"})
	require.NoError(t, err)
	assert.Contains(t, stmt, `INSERT INTO "customers" ("email", "id") VALUES ($1, $2), ($3, $4)`)
	assert.Contains(t, stmt, `ON CONFLICT ("id") DO UPDATE SET`)
	assert.Contains(t, stmt, `"email" = EXCLUDED."email"`)
	assert.NotContains(t, stmt, `"id" = EXCLUDED."id"`)
	assert.Contains(t, stmt, "synced_at = now()")
	assert.Equal(t, []any{"a@example.com", 1, "b@example.com", 2}, args)
}

func TestUpsertNoopOnEmptyRows(t *testing.T) {
	c := &Client{}
	err := c.Upsert(nil, "customers", nil, []string{"id"})
	require.NoError(t, err)
}
