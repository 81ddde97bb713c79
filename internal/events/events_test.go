package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutationJSON(t *testing.T) {
	ts := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	m := Mutation{Kind: "create_transaction", BudgetID: "4", TargetID: "17", Year: 2025, Month: 3, Timestamp: ts}

	data, err := m.ToJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"create_transaction","budget_id":"4","target_id":"17","year":2025,"month":3,"timestamp":"2025-03-02T10:00:00Z"}`, string(data))

	back, err := MutationFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, m, back)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	require.NoError(t, r.Publish(context.Background(), Mutation{Kind: "a"}))
	require.NoError(t, r.Publish(context.Background(), Mutation{Kind: "b"}))
	assert.Equal(t, []string{"a", "b"}, r.Kinds())
	assert.Len(t, r.Events(), 2)
	assert.NoError(t, Nop{}.Publish(context.Background(), Mutation{}))
}

func TestAllKindsAreDistinct(t *testing.T) {
	kinds := AllKinds()
	seen := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		assert.False(t, seen[k], "duplicate kind %s", k)
		seen[k] = true
	}
	assert.Len(t, kinds, 15)
}
