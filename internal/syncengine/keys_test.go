package syncengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalKeyOrderAndTypePreservation(t *testing.T) {
	key1, err := canonicalKey([]string{"region", "id"}, map[string]any{"id": "1", "region": "us"})
	require.NoError(t, err)
	key2, err := canonicalKey([]string{"region", "id"}, map[string]any{"id": float64(1), "region": "us"})
	require.NoError(t, err)

	assert.Equal(t, `["us","1"]`, key1)
	assert.NotEqual(t, key1, key2, "string \"1\" and numeric 1 must produce distinct keys")
}
