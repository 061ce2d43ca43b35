// Package registry implements the Node Registry (spec §4.1): a process-wide
// map from node-type identifier to a descriptor and a factory producing
// fresh node instances. Grounded on the teacher's pkg/executor/registry.go
// Strategy-pattern registry, generalized from a closed NodeType enum to an
// open identifier namespace.
package registry

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/flowkit/engine/internal/ast"
)

// identifierPattern matches snake_case-or-similar identifiers, applied to
// both node-type identifiers and edge names at registration time (spec
// §4.1: "validates ... names are snake_case or similar identifier-shaped
// strings").
var identifierPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// Descriptor is the immutable registry entry for a node type (spec §3,
// "Node type descriptor").
type Descriptor struct {
	Identifier   ast.NodeType
	Name         string
	Version      string
	ConfigKeys   []string
	OutputKeys   []string
	Edges        []string
	Hints        map[string]string
}

// DeclaresEdge reports whether this descriptor lists edge as an emittable edge.
func (d Descriptor) DeclaresEdge(edge string) bool {
	for _, e := range d.Edges {
		if e == edge {
			return true
		}
	}
	return false
}

// Factory produces a fresh Node instance bound to its descriptor.
type Factory func() Node

// Node is the runtime instance a factory produces. Node bodies implement
// this to satisfy the Node Contract (spec §4.6).
type Node interface {
	// Execute runs the node body and returns a single-edge EdgeMap.
	Execute(ctx ExecutionContext, config map[string]interface{}) (ast.EdgeMap, error)
}

// ExecutionContext is the narrow interface node bodies receive; it is
// implemented by the engine. Kept separate from the engine package to avoid
// an import cycle, the same way the teacher's executor.ExecutionContext
// decouples executor from engine.
type ExecutionContext interface {
	State() map[string]interface{}
	Inputs() interface{}
	WorkflowID() string
	NodeID() string
	ExecutionID() string
	Resolve(value interface{}) interface{}
}

type entry struct {
	descriptor Descriptor
	factory    Factory
}

// Registry maps node-type identifiers to their descriptor and factory.
// An Engine owns exactly one Registry (spec §4.1). Safe for concurrent use;
// registration after startup is permitted but expected to be rare.
type Registry struct {
	mu      sync.RWMutex
	entries map[ast.NodeType]entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[ast.NodeType]entry)}
}

// ErrDuplicateRegistration is returned by Register when the identifier is
// already registered under a different version (spec §4.1).
type ErrDuplicateRegistration struct {
	Identifier ast.NodeType
}

func (e *ErrDuplicateRegistration) Error() string {
	return fmt.Sprintf("node type already registered: %s", e.Identifier)
}

// Register stores a node type under its identifier. Same id+version is
// idempotent; a different version under the same id fails with
// ErrDuplicateRegistration.
func (r *Registry) Register(desc Descriptor, factory Factory) error {
	if !identifierPattern.MatchString(string(desc.Identifier)) {
		return fmt.Errorf("registry: invalid node type identifier %q", desc.Identifier)
	}
	if len(desc.Edges) == 0 {
		return fmt.Errorf("registry: node type %q declares no edges", desc.Identifier)
	}
	for _, e := range desc.Edges {
		if !identifierPattern.MatchString(e) {
			return fmt.Errorf("registry: node type %q declares invalid edge name %q", desc.Identifier, e)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[desc.Identifier]; ok {
		if existing.descriptor.Version != desc.Version {
			return &ErrDuplicateRegistration{Identifier: desc.Identifier}
		}
		return nil // idempotent re-registration of the same id+version
	}

	r.entries[desc.Identifier] = entry{descriptor: desc, factory: factory}
	return nil
}

// MustRegister registers and panics on error; used for startup registration
// of built-in node types, matching the teacher's MustRegister idiom.
func (r *Registry) MustRegister(desc Descriptor, factory Factory) {
	if err := r.Register(desc, factory); err != nil {
		panic(err)
	}
}

// Lookup returns the descriptor for identifier, or false if unregistered.
func (r *Registry) Lookup(identifier ast.NodeType) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[identifier]
	return e.descriptor, ok
}

// Create yields a fresh node instance bound to its descriptor.
func (r *Registry) Create(identifier ast.NodeType) (Node, error) {
	r.mu.RLock()
	e, ok := r.entries[identifier]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("registry: %w: %s", ast.ErrUnknownNodeType, identifier)
	}
	return e.factory(), nil
}

// ListRegisteredTypes returns all registered node-type identifiers.
func (r *Registry) ListRegisteredTypes() []ast.NodeType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ast.NodeType, 0, len(r.entries))
	for t := range r.entries {
		out = append(out, t)
	}
	return out
}
