package nodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterNodeMatchedSubset(t *testing.T) {
	ctx := newFakeCtx()
	n := &filterNode{}

	items := []interface{}{
		map[string]interface{}{"age": 10.0},
		map[string]interface{}{"age": 25.0},
		map[string]interface{}{"age": 40.0},
	}
	em, err := n.Execute(ctx, map[string]interface{}{"items": items, "where": "item.age >= 18"})
	require.NoError(t, err)

	edgeName, payload, err := firstEdge(em)
	require.NoError(t, err)
	assert.Equal(t, "matched", edgeName)
	out := payload.(map[string]interface{})
	assert.Equal(t, 2, out["count"])
}

func TestFilterNodeEmptyWhenNothingMatches(t *testing.T) {
	ctx := newFakeCtx()
	n := &filterNode{}

	items := []interface{}{map[string]interface{}{"age": 5.0}}
	em, err := n.Execute(ctx, map[string]interface{}{"items": items, "where": "item.age >= 18"})
	require.NoError(t, err)

	edgeName, payload, err := firstEdge(em)
	require.NoError(t, err)
	assert.Equal(t, "empty", edgeName)
	assert.Equal(t, 0, payload.(map[string]interface{})["count"])
}

func TestFilterNodeFallsBackToInputsWhenItemsAbsent(t *testing.T) {
	ctx := newFakeCtx()
	ctx.inputs = []interface{}{1.0, 2.0, 3.0}
	n := &filterNode{}

	em, err := n.Execute(ctx, map[string]interface{}{"where": "item > 1"})
	require.NoError(t, err)
	edgeName, payload, err := firstEdge(em)
	require.NoError(t, err)
	assert.Equal(t, "matched", edgeName)
	assert.Equal(t, 2, payload.(map[string]interface{})["count"])
}

func TestFilterNodeRejectsNonArrayItems(t *testing.T) {
	ctx := newFakeCtx()
	n := &filterNode{}
	_, err := n.Execute(ctx, map[string]interface{}{"items": "not-an-array", "where": "true"})
	assert.Error(t, err)
}
