package nodes

import (
	"github.com/flowkit/engine/internal/ast"
	"github.com/flowkit/engine/internal/registry"
)

// fakeCtx is a minimal registry.ExecutionContext stand-in for exercising
// node bodies directly, without going through the engine. Mirrors the
// narrow interface shape engine.execContext implements.
type fakeCtx struct {
	state       map[string]interface{}
	inputs      interface{}
	workflowID  string
	nodeID      string
	executionID string
}

func newFakeCtx() *fakeCtx {
	return &fakeCtx{state: map[string]interface{}{}, nodeID: "n0", workflowID: "wf", executionID: "exec-1"}
}

func (c *fakeCtx) State() map[string]interface{} { return c.state }
func (c *fakeCtx) Inputs() interface{}           { return c.inputs }
func (c *fakeCtx) WorkflowID() string            { return c.workflowID }
func (c *fakeCtx) NodeID() string                { return c.nodeID }
func (c *fakeCtx) ExecutionID() string           { return c.executionID }
func (c *fakeCtx) Resolve(value interface{}) interface{} { return value }

var _ registry.ExecutionContext = (*fakeCtx)(nil)

// firstEdge runs the single thunk in em and returns the edge name, its
// payload, and any thunk error — the shape every test in this package
// wants to assert on.
func firstEdge(em ast.EdgeMap) (string, interface{}, error) {
	for name, thunk := range em {
		payload, err := thunk()
		return name, payload, err
	}
	return "", nil, nil
}
