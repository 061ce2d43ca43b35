package nodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaValidatorNodeValidData(t *testing.T) {
	ctx := newFakeCtx()
	n := &schemaValidatorNode{}

	schema := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"name"},
		"properties": map[string]interface{}{
			"name": map[string]interface{}{"type": "string"},
		},
	}
	data := map[string]interface{}{"name": "ada"}

	em, err := n.Execute(ctx, map[string]interface{}{"schema": schema, "data": data})
	require.NoError(t, err)
	edgeName, _, err := firstEdge(em)
	require.NoError(t, err)
	assert.Equal(t, "valid", edgeName)
}

func TestSchemaValidatorNodeInvalidDataReturnsErrors(t *testing.T) {
	ctx := newFakeCtx()
	n := &schemaValidatorNode{}

	schema := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"name"},
	}
	data := map[string]interface{}{}

	em, err := n.Execute(ctx, map[string]interface{}{"schema": schema, "data": data})
	require.NoError(t, err)
	edgeName, payload, err := firstEdge(em)
	require.NoError(t, err)
	assert.Equal(t, "invalid", edgeName)
	errs := payload.(map[string]interface{})["errors"].([]map[string]interface{})
	assert.NotEmpty(t, errs)
}

func TestSchemaValidatorNodeStrictModeFailsHard(t *testing.T) {
	ctx := newFakeCtx()
	n := &schemaValidatorNode{}

	schema := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"name"},
	}
	data := map[string]interface{}{}

	_, err := n.Execute(ctx, map[string]interface{}{"schema": schema, "data": data, "strict": true})
	assert.Error(t, err)
}

func TestSchemaValidatorNodeRequiresSchema(t *testing.T) {
	ctx := newFakeCtx()
	n := &schemaValidatorNode{}
	_, err := n.Execute(ctx, map[string]interface{}{"data": map[string]interface{}{}})
	assert.Error(t, err)
}

func TestSchemaValidatorNodeFallsBackToInputsForData(t *testing.T) {
	ctx := newFakeCtx()
	ctx.inputs = map[string]interface{}{"name": "grace"}
	n := &schemaValidatorNode{}

	schema := map[string]interface{}{"type": "object", "required": []interface{}{"name"}}
	em, err := n.Execute(ctx, map[string]interface{}{"schema": schema})
	require.NoError(t, err)
	edgeName, _, err := firstEdge(em)
	require.NoError(t, err)
	assert.Equal(t, "valid", edgeName)
}
