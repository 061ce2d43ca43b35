package engine

import (
	"github.com/flowkit/engine/internal/state"
)

// execContext is the concrete registry.ExecutionContext the engine hands a
// node body for one invocation (spec §3, "Execution context").
type execContext struct {
	mgr         *state.Manager
	inputs      interface{}
	workflowID  string
	nodeID      string
	executionID string
}

func (c *execContext) State() map[string]interface{} { return c.mgr.Raw() }
func (c *execContext) Inputs() interface{}            { return c.inputs }
func (c *execContext) WorkflowID() string             { return c.workflowID }
func (c *execContext) NodeID() string                 { return c.nodeID }
func (c *execContext) ExecutionID() string             { return c.executionID }

func (c *execContext) Resolve(value interface{}) interface{} {
	return c.mgr.Resolve(value, c.inputs)
}
