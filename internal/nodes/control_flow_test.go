package nodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopNodeAgainUntilLimitThenStop(t *testing.T) {
	ctx := newFakeCtx()
	n := &loopNode{}

	for i := 1; i <= 3; i++ {
		em, err := n.Execute(ctx, map[string]interface{}{"limit": 3})
		require.NoError(t, err)
		edgeName, _, err := firstEdge(em)
		require.NoError(t, err)
		assert.Equal(t, "again", edgeName)
		assert.EqualValues(t, i, ctx.state["loopCount"])
	}

	em, err := n.Execute(ctx, map[string]interface{}{"limit": 3})
	require.NoError(t, err)
	edgeName, _, err := firstEdge(em)
	require.NoError(t, err)
	assert.Equal(t, "stop", edgeName)
}

func TestRangeNodeIteratesThenCompletes(t *testing.T) {
	ctx := newFakeCtx()
	n := &rangeNode{}
	config := map[string]interface{}{"start": 1.0, "stop": 4.0, "step": 1.0}

	var seen []interface{}
	for {
		em, err := n.Execute(ctx, config)
		require.NoError(t, err)
		edgeName, _, err := firstEdge(em)
		require.NoError(t, err)
		if edgeName == "complete" {
			break
		}
		require.Equal(t, "next", edgeName)
		seen = append(seen, ctx.state["rangeValue"])
	}

	assert.Equal(t, []interface{}{1.0, 2.0, 3.0}, seen)
	assert.NotContains(t, ctx.state, "_loop_cursor_n0")
}

func TestRangeNodeRejectsZeroStep(t *testing.T) {
	ctx := newFakeCtx()
	n := &rangeNode{}
	_, err := n.Execute(ctx, map[string]interface{}{"step": 0.0})
	assert.Error(t, err)
}

func TestSwitchNodeFirstMatchWins(t *testing.T) {
	ctx := newFakeCtx()
	ctx.state["tier"] = "gold"
	n := &switchNode{}

	cases := []interface{}{
		map[string]interface{}{"when": `variables.tier == 'silver'`, "case": "silver"},
		map[string]interface{}{"when": `variables.tier == 'gold'`, "case": "gold"},
	}
	em, err := n.Execute(ctx, map[string]interface{}{"cases": cases})
	require.NoError(t, err)
	edgeName, payload, err := firstEdge(em)
	require.NoError(t, err)
	assert.Equal(t, "matched", edgeName)
	assert.Equal(t, "gold", payload.(map[string]interface{})["case"])
	assert.Equal(t, 1, payload.(map[string]interface{})["caseIndex"])
}

func TestSwitchNodeDefaultWhenNoCaseMatches(t *testing.T) {
	ctx := newFakeCtx()
	ctx.state["tier"] = "bronze"
	n := &switchNode{}

	cases := []interface{}{
		map[string]interface{}{"when": `variables.tier == 'gold'`, "case": "gold"},
	}
	em, err := n.Execute(ctx, map[string]interface{}{"cases": cases})
	require.NoError(t, err)
	edgeName, _, err := firstEdge(em)
	require.NoError(t, err)
	assert.Equal(t, "default", edgeName)
}
