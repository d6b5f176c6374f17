package syncengine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/user/syncengine/pkg/syncmodel"
)

func TestSanitizeHeader(t *testing.T) {
	assert.Equal(t, "order_id", sanitizeHeader("Order ID"))
	assert.Equal(t, "c_2024_revenue", sanitizeHeader("2024 Revenue"))
	assert.Equal(t, "column", sanitizeHeader("   "))
	assert.Equal(t, "a_b_c", sanitizeHeader("a/b.c"))
}

func TestInferColumnClassOrder(t *testing.T) {
	assert.Equal(t, syncmodel.ClassDate, inferColumnClass([]string{"2026-01-01", "2026-02-03"}))
	assert.Equal(t, syncmodel.ClassTimestamp, inferColumnClass([]string{"2026-01-01 10:00:00", "2026-01-02T11:00:00"}))
	assert.Equal(t, syncmodel.ClassInt, inferColumnClass([]string{"1", "2", "3"}))
	assert.Equal(t, syncmodel.ClassFloat, inferColumnClass([]string{"1.5", "2"}))
	assert.Equal(t, syncmodel.ClassString, inferColumnClass([]string{"abc", "1"}))
	assert.Equal(t, syncmodel.ClassString, inferColumnClass([]string{"", ""}))
}

func TestInferSheetSchema(t *testing.T) {
	headers := []string{sanitizeHeader("Order ID"), sanitizeHeader("Revenue")}
	rows := [][]any{
		{"1", "10.5"},
		{"2", "20"},
	}
	schema := inferSheetSchema(headers, rows)
	assert.Equal(t, "order_id", schema[0].Name)
	assert.Equal(t, syncmodel.ClassInt, schema[0].Class)
	assert.Equal(t, "revenue", schema[1].Name)
	assert.Equal(t, syncmodel.ClassFloat, schema[1].Class)
	assert.True(t, schema[0].Nullable)
}
