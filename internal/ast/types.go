// Package ast defines the internal representation the parser lowers workflow
// JSON into, and the context keys shared across the engine, nodes, and
// automation layers.
package ast

import "context"

// contextKey avoids collisions with other packages' context values.
type contextKey string

const (
	// ContextKeyExecutionID is the context key for the unique execution ID.
	ContextKeyExecutionID contextKey = "execution_id"
	// ContextKeyWorkflowID is the context key for the workflow ID.
	ContextKeyWorkflowID contextKey = "workflow_id"
)

// GetExecutionID extracts the execution ID from context, or "" if absent.
func GetExecutionID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyExecutionID).(string); ok {
		return id
	}
	return ""
}

// GetWorkflowID extracts the workflow ID from context, or "" if absent.
func GetWorkflowID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyWorkflowID).(string); ok {
		return id
	}
	return ""
}

// NodeType identifies a node implementation in the registry. Unlike a closed
// enum, any snake_case-ish identifier string registered at startup is valid;
// the set is open because node bodies are external collaborators (spec §4.6).
type NodeType string

// Node is one unit of the parsed AST. A bare node ("print-message") has an
// empty Config and no Branches. A loop-marked node re-invokes its body on
// every re-entry of the loop (spec §3, "Loop marker").
type Node struct {
	InstanceID string
	NodeType   NodeType
	IsLoop     bool
	Config     map[string]interface{}
	// Branches maps an edge name to the subgraph executed when that edge
	// fires. Declaration order inside a single node's config carries no
	// semantics (spec §4.4.4) but Go map iteration order is randomized on
	// purpose here to make that explicit — lookups are always by edge name.
	Branches map[string]Sequence
}

// Sequence is an ordered list of AST nodes executing in program order; the
// top-level workflow is a Sequence, and every branch subgraph is also a
// Sequence (possibly of length 1).
type Sequence []*Node

// Clone returns a deep copy of the node, used when the engine needs to hand
// out a branch subgraph without aliasing the parsed AST.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	cfg := make(map[string]interface{}, len(n.Config))
	for k, v := range n.Config {
		cfg[k] = v
	}
	branches := make(map[string]Sequence, len(n.Branches))
	for edge, seq := range n.Branches {
		branches[edge] = seq.Clone()
	}
	return &Node{
		InstanceID: n.InstanceID,
		NodeType:   n.NodeType,
		IsLoop:     n.IsLoop,
		Config:     cfg,
		Branches:   branches,
	}
}

// Clone returns a deep copy of the sequence.
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	out := make(Sequence, len(s))
	for i, n := range s {
		out[i] = n.Clone()
	}
	return out
}

// Workflow is the parsed, validated top-level document (spec §3, "Workflow
// definition").
type Workflow struct {
	ID           string
	Name         string
	Version      string
	InitialState map[string]interface{}
	Context      map[string]interface{} // supplemental: named constants/vars, see SPEC_FULL §3
	Steps        Sequence
}

// EdgeMap is the single-key result a node execute() call must return: exactly
// one edge name mapped to a thunk producing the payload for that edge (spec
// §3, "Node invocation result"). The engine calls Payload() exactly once.
type EdgeMap map[string]func() (interface{}, error)

// SingleEdge validates and extracts the lone entry of an EdgeMap. Returns an
// error if the map is empty; if it holds more than one entry the spec leaves
// engine behaviour unspecified, so implementations here pick the first key in
// map order and surface a warning to the caller (see DESIGN.md Open Question
// resolution) rather than failing the run.
func (m EdgeMap) SingleEdge() (edge string, thunk func() (interface{}, error), warn bool, err error) {
	if len(m) == 0 {
		return "", nil, false, ErrEmptyEdgeMap
	}
	if len(m) == 1 {
		for k, v := range m {
			return k, v, false, nil
		}
	}
	for k, v := range m {
		return k, v, true, nil
	}
	return "", nil, false, ErrEmptyEdgeMap
}
