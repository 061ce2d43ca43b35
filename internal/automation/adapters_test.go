package automation

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowkit/engine/internal/ast"
	"github.com/flowkit/engine/internal/engine"
	"github.com/flowkit/engine/internal/nodes"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/storage"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	require.NoError(t, r.Register(registry.Descriptor{
		Identifier: "print-message", Name: "Print Message", Version: "1",
		Edges: []string{"success"},
	}, func() registry.Node { return noopAutomationNode{} }))
	return r
}

type noopAutomationNode struct{}

func (noopAutomationNode) Execute(ctx registry.ExecutionContext, config map[string]interface{}) (ast.EdgeMap, error) {
	ctx.State()["ran"] = true
	_, hasServices := ctx.State()["_services"]
	ctx.State()["sawServices"] = hasServices
	return ast.EdgeMap{"success": func() (interface{}, error) { return nil, nil }}, nil
}

func TestStorageLoaderLoadsAndParsesStoredWorkflow(t *testing.T) {
	reg := testRegistry(t)
	store := storage.NewInMemoryStore()
	id, err := store.Save("greet", "", []byte(`{"id":"wf1","workflow":["print-message"]}`))
	require.NoError(t, err)

	loader := &StorageLoader{Store: store, Registry: reg}
	wf, err := loader.Load(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, wf.Steps, 1)
	assert.Equal(t, ast.NodeType("print-message"), wf.Steps[0].NodeType)
}

func TestStorageLoaderPropagatesMissingWorkflow(t *testing.T) {
	loader := &StorageLoader{Store: storage.NewInMemoryStore(), Registry: testRegistry(t)}
	_, err := loader.Load(context.Background(), "missing")
	assert.Error(t, err)
}

func TestEngineRunnerExecutesAndInjectsServices(t *testing.T) {
	reg := testRegistry(t)
	eng := engine.New(reg, engine.Options{})
	wf := &ast.Workflow{ID: "wf1", Steps: ast.Sequence{{InstanceID: "0", NodeType: "print-message"}}}

	runner := &EngineRunner{Engine: eng, Services: nodes.Services{HTTPClient: &http.Client{}}}
	result, err := runner.Execute(context.Background(), wf, map[string]interface{}{"seed": 1})
	require.NoError(t, err)
	assert.Equal(t, true, result.State["ran"])
	assert.Equal(t, true, result.State["sawServices"])
	assert.EqualValues(t, 1, result.State["seed"])
}
