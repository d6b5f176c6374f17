package warehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/user/syncengine/pkg/syncmodel"
)

func TestClassForBigQueryType(t *testing.T) {
	assert.Equal(t, syncmodel.ClassInt, classForBigQueryType("INTEGER"))
	assert.Equal(t, syncmodel.ClassTimestamp, classForBigQueryType("TIMESTAMP"))
	assert.Equal(t, syncmodel.ClassString, classForBigQueryType("GEOGRAPHY"))
}

func TestDecodeCellLargeIntegerPreservedAsString(t *testing.T) {
	v := decodeCell(syncmodel.ClassInt, "id", "9007199254740993", nil)
	assert.Equal(t, "9007199254740993", v)
}

func TestDecodeCellSmallIntegerParsed(t *testing.T) {
	v := decodeCell(syncmodel.ClassInt, "id", "42", nil)
	assert.Equal(t, int64(42), v)
}

func TestDecodeCellForceStringSet(t *testing.T) {
	v := decodeCell(syncmodel.ClassInt, "id", "42", map[string]bool{"id": true})
	assert.Equal(t, "42", v)
}

func TestDecodeCellNullPropagates(t *testing.T) {
	v := decodeCell(syncmodel.ClassString, "name", "", nil)
	assert.Nil(t, v)
}

func TestDecodeCellFloat(t *testing.T) {
	v := decodeCell(syncmodel.ClassFloat, "score", "3.14", nil)
	assert.Equal(t, 3.14, v)
}
