package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildDeleteStatementSingleKey(t *testing.T) {
	stmt, args := buildDeleteStatement(`"customers"`, []string{`"id"`}, [][]any{{1}, {2}, {3}})
	assert.Equal(t, `DELETE FROM "customers" WHERE "id" IN ($1, $2, $3)`, stmt)
	assert.Equal(t, []any{1, 2, 3}, args)
}

func TestBuildDeleteStatementCompositeKey(t *testing.T) {
	stmt, args := buildDeleteStatement(`"orders"`, []string{`"order_id"`, `"line_no"`}, [][]any{{1, 1}, {1, 2}})
	assert.Equal(t, `DELETE FROM "orders" WHERE ("order_id", "line_no") IN (($1, $2), ($3, $4))`, stmt)
	assert.Equal(t, []any{1, 1, 1, 2}, args)
}

func TestDeleteNoopOnEmptyTuples(t *testing.T) {
	c := &Client{}
	n, err := c.Delete(nil, "customers", []string{"id"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}
