package contextkeys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	k, ok := Lookup(CompareDirection)
	require.True(t, ok)
	assert.Equal(t, KindString, k.Kind)
	assert.Equal(t, "sourceToTarget", k.DefaultString)

	_, ok = Lookup("not.a.key")
	assert.False(t, ok)
}

func TestTypedDefaults(t *testing.T) {
	assert.True(t, Bool(ServerTreeVisible))
	assert.False(t, Bool(ComparisonInProgress))
	assert.False(t, Bool("not.a.key"))

	assert.Equal(t, "sourceToTarget", String(CompareDirection))
	assert.Equal(t, "", String(ResultLimit))

	assert.Equal(t, 500.0, Number(ResultLimit))
	assert.Equal(t, 0.0, Number(CompareDirection))
}

func TestAllIsSortedAndComplete(t *testing.T) {
	keys := All()
	require.Len(t, keys, len(registry))
	for i := 1; i < len(keys); i++ {
		assert.Less(t, keys[i-1].Name, keys[i].Name)
	}
}
