// Package nodes provides the built-in reference node bodies satisfying the
// Node Contract (spec §4.6): print-random-number, decision-node,
// print-message, loop-node, range, fetch, filter, switch, delay, the state
// nodes (variable/counter/accumulator/cache), and the resilience nodes
// (try-catch/retry/timeout). Grounded on the teacher's pkg/executor/*
// bodies, adapted from the teacher's DAG-node/result contract into the
// spec's edge-emitting Node Contract (registry.Node).
package nodes

import (
	"fmt"

	"github.com/flowkit/engine/internal/ast"
	"github.com/flowkit/engine/internal/registry"
)

// edge builds a single-entry ast.EdgeMap, the shape every node body in this
// package returns (spec §3, "Node invocation result").
func edge(name string, payload interface{}) ast.EdgeMap {
	return ast.EdgeMap{name: func() (interface{}, error) { return payload, nil }}
}

// edgeErr builds a single-entry EdgeMap whose thunk fails when called. Used
// by nodes that want the failure to surface through the edge's thunk rather
// than through Execute's error return (spec §4.4.6 distinguishes the two;
// most bodies here prefer returning the error straight from Execute, which
// the engine wraps as an EngineFailure, reserving this for nodes that must
// still report a completed-with-problem edge).
func edgeErr(name string, err error) ast.EdgeMap {
	return ast.EdgeMap{name: func() (interface{}, error) { return nil, err }}
}

// configString reads a string config key, falling back to def if absent or
// of the wrong type. Node bodies treat config as already template-resolved
// by the engine (spec §4.4.2.b) — they never parse "$." syntax themselves.
func configString(cfg map[string]interface{}, key, def string) string {
	if v, ok := cfg[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// configFloat reads a numeric config key as float64, falling back to def.
// JSON numbers decode as float64 via encoding/json, and ints survive the
// state manager's JSON-based deep clone (SPEC_FULL §4.3) the same way.
func configFloat(cfg map[string]interface{}, key string, def float64) float64 {
	if v, ok := cfg[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return def
}

func configInt(cfg map[string]interface{}, key string, def int) int {
	return int(configFloat(cfg, key, float64(def)))
}

func configBool(cfg map[string]interface{}, key string, def bool) bool {
	if v, ok := cfg[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// RegisterBuiltins registers every built-in node type in this package onto
// reg. Intended to be called once at startup (spec §4.1: "Registration is
// expected during startup").
func RegisterBuiltins(reg *registry.Registry) error {
	registrations := []struct {
		desc    registry.Descriptor
		factory registry.Factory
	}{
		{printRandomNumberDescriptor, func() registry.Node { return &printRandomNumberNode{} }},
		{printMessageDescriptor, func() registry.Node { return &printMessageNode{} }},
		{decisionNodeDescriptor, func() registry.Node { return &decisionNode{} }},
		{loopNodeDescriptor, func() registry.Node { return &loopNode{} }},
		{rangeNodeDescriptor, func() registry.Node { return &rangeNode{} }},
		{fetchDescriptor, func() registry.Node { return newFetchNode() }},
		{filterDescriptor, func() registry.Node { return &filterNode{} }},
		{switchDescriptor, func() registry.Node { return &switchNode{} }},
		{delayDescriptor, func() registry.Node { return &delayNode{} }},
		{variableDescriptor, func() registry.Node { return &variableNode{} }},
		{counterDescriptor, func() registry.Node { return &counterNode{} }},
		{accumulatorDescriptor, func() registry.Node { return &accumulatorNode{} }},
		{cacheDescriptor, func() registry.Node { return &cacheNode{} }},
		{tryCatchDescriptor, func() registry.Node { return &tryCatchNode{} }},
		{retryDescriptor, func() registry.Node { return &retryNode{} }},
		{timeoutDescriptor, func() registry.Node { return &timeoutNode{} }},
		{schemaValidatorDescriptor, func() registry.Node { return &schemaValidatorNode{} }},
	}

	for _, r := range registrations {
		if err := reg.Register(r.desc, r.factory); err != nil {
			return fmt.Errorf("nodes: registering %q: %w", r.desc.Identifier, err)
		}
	}
	return nil
}
