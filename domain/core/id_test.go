package core

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		require.False(t, id.IsEmpty(), "empty ID at iteration %d", i)
		require.False(t, ids[id], "duplicate ID %s", id)
		ids[id] = true
	}
	assert.Len(t, ids, numIDs)
}

func TestRunIDsSortByCreation(t *testing.T) {
	var ids []string
	for i := 0; i < 50; i++ {
		ids = append(ids, NewRunID().String())
	}
	assert.True(t, sort.StringsAreSorted(ids))
}

func TestParseRunID(t *testing.T) {
	valid := NewRunID()
	parsed, err := ParseRunID(valid.String())
	require.NoError(t, err)
	assert.Equal(t, valid, parsed)

	for _, bad := range []string{"", "   ", "run-123"} {
		_, err := ParseRunID(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
