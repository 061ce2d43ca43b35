package nodes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariableNodeSetThenGet(t *testing.T) {
	ctx := newFakeCtx()
	n := &variableNode{}

	_, err := n.Execute(ctx, map[string]interface{}{"name": "greeting", "op": "set", "value": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", ctx.state["greeting"])

	em, err := n.Execute(ctx, map[string]interface{}{"name": "greeting", "op": "get"})
	require.NoError(t, err)
	edgeName, payload, err := firstEdge(em)
	require.NoError(t, err)
	assert.Equal(t, "success", edgeName)
	assert.Equal(t, "hi", payload.(map[string]interface{})["value"])
}

func TestVariableNodeRequiresName(t *testing.T) {
	ctx := newFakeCtx()
	n := &variableNode{}
	_, err := n.Execute(ctx, map[string]interface{}{"op": "get"})
	assert.Error(t, err)
}

func TestVariableNodeSetRequiresValue(t *testing.T) {
	ctx := newFakeCtx()
	n := &variableNode{}
	_, err := n.Execute(ctx, map[string]interface{}{"name": "x", "op": "set"})
	assert.Error(t, err)
}

func TestCounterNodeIncrementDecrementResetGet(t *testing.T) {
	ctx := newFakeCtx()
	n := &counterNode{}

	em, err := n.Execute(ctx, map[string]interface{}{"name": "hits", "op": "increment"})
	require.NoError(t, err)
	_, payload, _ := firstEdge(em)
	assert.EqualValues(t, 1, payload.(map[string]interface{})["value"])

	em, err = n.Execute(ctx, map[string]interface{}{"name": "hits", "op": "increment", "delta": 5})
	require.NoError(t, err)
	_, payload, _ = firstEdge(em)
	assert.EqualValues(t, 6, payload.(map[string]interface{})["value"])

	em, err = n.Execute(ctx, map[string]interface{}{"name": "hits", "op": "decrement", "delta": 2})
	require.NoError(t, err)
	_, payload, _ = firstEdge(em)
	assert.EqualValues(t, 4, payload.(map[string]interface{})["value"])

	em, err = n.Execute(ctx, map[string]interface{}{"name": "hits", "op": "reset", "initial": 10})
	require.NoError(t, err)
	_, payload, _ = firstEdge(em)
	assert.EqualValues(t, 10, payload.(map[string]interface{})["value"])

	em, err = n.Execute(ctx, map[string]interface{}{"name": "hits", "op": "get"})
	require.NoError(t, err)
	_, payload, _ = firstEdge(em)
	assert.EqualValues(t, 10, payload.(map[string]interface{})["value"])
}

func TestCounterNodeRejectsUnknownOp(t *testing.T) {
	ctx := newFakeCtx()
	n := &counterNode{}
	_, err := n.Execute(ctx, map[string]interface{}{"name": "x", "op": "frobnicate"})
	assert.Error(t, err)
}

func TestAccumulatorNodeSumAndReadback(t *testing.T) {
	ctx := newFakeCtx()
	n := &accumulatorNode{}

	for _, v := range []float64{1, 2, 3} {
		_, err := n.Execute(ctx, map[string]interface{}{"name": "total", "op": "sum", "value": v})
		require.NoError(t, err)
	}
	em, err := n.Execute(ctx, map[string]interface{}{"name": "total", "op": "sum"})
	require.NoError(t, err)
	_, payload, _ := firstEdge(em)
	assert.EqualValues(t, 6, payload.(map[string]interface{})["value"])
}

func TestAccumulatorNodeArrayAppends(t *testing.T) {
	ctx := newFakeCtx()
	n := &accumulatorNode{}

	_, err := n.Execute(ctx, map[string]interface{}{"name": "all", "op": "array", "value": "a"})
	require.NoError(t, err)
	em, err := n.Execute(ctx, map[string]interface{}{"name": "all", "op": "array", "value": "b"})
	require.NoError(t, err)
	_, payload, _ := firstEdge(em)
	assert.Equal(t, []interface{}{"a", "b"}, payload.(map[string]interface{})["value"])
}

func TestAccumulatorNodeSumRejectsNonNumeric(t *testing.T) {
	ctx := newFakeCtx()
	n := &accumulatorNode{}
	_, err := n.Execute(ctx, map[string]interface{}{"name": "total", "op": "sum", "value": "not-a-number"})
	assert.Error(t, err)
}

func TestCacheNodeSetGetDelete(t *testing.T) {
	ctx := newFakeCtx()
	n := &cacheNode{}

	_, err := n.Execute(ctx, map[string]interface{}{"key": "k", "op": "set", "value": "v", "ttl": "1m"})
	require.NoError(t, err)

	em, err := n.Execute(ctx, map[string]interface{}{"key": "k", "op": "get"})
	require.NoError(t, err)
	_, payload, _ := firstEdge(em)
	out := payload.(map[string]interface{})
	assert.True(t, out["found"].(bool))
	assert.Equal(t, "v", out["value"])

	_, err = n.Execute(ctx, map[string]interface{}{"key": "k", "op": "delete"})
	require.NoError(t, err)

	em, err = n.Execute(ctx, map[string]interface{}{"key": "k", "op": "get"})
	require.NoError(t, err)
	_, payload, _ = firstEdge(em)
	assert.False(t, payload.(map[string]interface{})["found"].(bool))
}

func TestCacheNodeExpiresAfterTTL(t *testing.T) {
	ctx := newFakeCtx()
	n := &cacheNode{}

	_, err := n.Execute(ctx, map[string]interface{}{"key": "k", "op": "set", "value": "v", "ttl": "1ms"})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	em, err := n.Execute(ctx, map[string]interface{}{"key": "k", "op": "get"})
	require.NoError(t, err)
	_, payload, _ := firstEdge(em)
	assert.False(t, payload.(map[string]interface{})["found"].(bool))
}

func TestCacheNodeRequiresKey(t *testing.T) {
	ctx := newFakeCtx()
	n := &cacheNode{}
	_, err := n.Execute(ctx, map[string]interface{}{"op": "get"})
	assert.Error(t, err)
}
