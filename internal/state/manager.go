// Package state implements the State Manager (spec §4.3): the mutable
// key/value bag for one workflow execution, template resolution against
// ($.path) state and inputs, and reserved-key scoping. Grounded on the
// teacher's pkg/state/manager.go typed-bucket manager, generalized to one
// free-form map since spec.md explicitly rejects a strongly-typed state
// (spec §1, Non-goals).
package state

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// reservedPrefix marks engine-owned keys (loop bookkeeping, service
// injection) that must never appear in the publicly exposed final state
// (spec §3, Invariants; spec §9, "Service injection").
const reservedPrefix = "_"

// Manager owns the state for a single run. It is single-threaded with
// respect to that run (spec §4.3) — callers must not access it from two
// goroutines concurrently — but a Manager is freely reusable for a new run
// via Reset.
type Manager struct {
	mu    sync.Mutex
	state map[string]interface{}
}

// New creates an empty state manager.
func New() *Manager {
	return &Manager{state: make(map[string]interface{})}
}

// Init seeds state from the workflow's initialState (deep-cloned) and then
// applies caller-supplied overrides on top, per spec §4.3.
func Init(initialState map[string]interface{}, overrides map[string]interface{}) (*Manager, error) {
	m := New()
	cloned, err := deepClone(initialState)
	if err != nil {
		return nil, fmt.Errorf("state: cloning initialState: %w", err)
	}
	if cloned != nil {
		m.state = cloned
	}
	for k, v := range overrides {
		m.state[k] = v
	}
	return m, nil
}

// Snapshot returns a deep copy of the current state, with reserved
// (underscore-prefixed) keys stripped — the view a node body or the final
// run result is allowed to see (spec §3, Invariants: "must not appear in
// the publicly-exposed final state").
func (m *Manager) Snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]interface{}, len(m.state))
	for k, v := range m.state {
		if strings.HasPrefix(k, reservedPrefix) {
			continue
		}
		out[k] = copyValue(v)
	}
	return out
}

// copyValue recursively copies nested maps and slices so a snapshot shares no
// container with the live state; other values are returned unchanged.
func copyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, vv := range val {
			out[k] = copyValue(vv)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, vv := range val {
			out[i] = copyValue(vv)
		}
		return out
	}
	return v
}

// Raw returns a live reference to the underlying map for node bodies that
// mutate state directly via their ExecutionContext (spec §4.4: "the node
// body may mutate context.state freely"). Callers must hold no other
// reference past the node invocation.
func (m *Manager) Raw() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Get reads one top-level key, used by internal bookkeeping (e.g. loop
// counters under reserved keys).
func (m *Manager) Get(key string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.state[key]
	return v, ok
}

// Set writes one top-level key.
func (m *Manager) Set(key string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[key] = value
}

// Delete removes one top-level key, used to clear loop bookkeeping on clean
// loop exit (spec §4.4.3).
func (m *Manager) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state, key)
}

// ResolveConfig deep-clones config and resolves any "$.path" template
// references inside string values against (state, inputs), state first then
// inputs (spec §4.3, "resolve template references").
func (m *Manager) ResolveConfig(config map[string]interface{}, inputs interface{}) (map[string]interface{}, error) {
	cloned, err := deepClone(config)
	if err != nil {
		return nil, fmt.Errorf("state: cloning config: %w", err)
	}

	m.mu.Lock()
	snapshot := make(map[string]interface{}, len(m.state))
	for k, v := range m.state {
		snapshot[k] = v
	}
	m.mu.Unlock()

	resolved := make(map[string]interface{}, len(cloned))
	for k, v := range cloned {
		resolved[k] = resolveValue(v, snapshot, inputs)
	}
	return resolved, nil
}

// Resolve resolves template references inside an arbitrary value (string,
// map, or slice) against the manager's current state and the supplied
// inputs, without the deep-clone step ResolveConfig performs. Used by
// ExecutionContext.Resolve so a node body can resolve an ad hoc value (e.g.
// one nested inside a list it built itself) the same way the engine resolves
// config.
func (m *Manager) Resolve(value interface{}, inputs interface{}) interface{} {
	m.mu.Lock()
	snapshot := make(map[string]interface{}, len(m.state))
	for k, v := range m.state {
		snapshot[k] = v
	}
	m.mu.Unlock()
	return resolveValue(value, snapshot, inputs)
}

// resolveValue recursively resolves template references in strings, maps,
// and slices, leaving every other type untouched (spec §4.4.5: "Template
// resolution does not coerce types").
func resolveValue(v interface{}, state map[string]interface{}, inputs interface{}) interface{} {
	switch val := v.(type) {
	case string:
		return ResolveTemplate(val, state, inputs)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, vv := range val {
			out[k] = resolveValue(vv, state, inputs)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, vv := range val {
			out[i] = resolveValue(vv, state, inputs)
		}
		return out
	default:
		return val
	}
}

// templatePrefix is the surface syntax marking a template reference (spec
// §3, "Execution context"; spec §9, "Template resolution").
const templatePrefix = "$."

// ResolveTemplate resolves a single string value. If the whole string is
// exactly one "$.path" reference, the resolved value (of any type) is
// returned directly — this is how a template can yield a number or object,
// not just a string. A reference embedded in a larger string is not
// supported; spec §9 restricts templates to "dotted identifiers" only, so
// anything else is returned unmodified rather than partially interpolated.
func ResolveTemplate(s string, state map[string]interface{}, inputs interface{}) interface{} {
	if !strings.HasPrefix(s, templatePrefix) {
		return s
	}
	path := strings.TrimPrefix(s, templatePrefix)
	if path == "" || !isDottedPath(path) {
		return s
	}

	if v, ok := lookupPath(state, path); ok {
		return v
	}
	if v, ok := lookupPath(toMap(inputs), path); ok {
		return v
	}
	return nil // undefined reference resolves to undefined/nil (spec §4.3)
}

// isDottedPath rejects anything beyond a dot-delimited run of identifiers or
// array indices, per spec §9: "It is not an expression language; reject
// anything beyond dotted identifiers."
func isDottedPath(path string) bool {
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			return false
		}
		for _, r := range seg {
			if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
				return false
			}
		}
	}
	return true
}

// lookupPath walks a dotted path against a map, descending into nested maps
// and, where a segment parses as an integer, nested slices.
func lookupPath(m map[string]interface{}, path string) (interface{}, bool) {
	if m == nil {
		return nil, false
	}
	var cur interface{} = m
	for _, seg := range strings.Split(path, ".") {
		switch c := cur.(type) {
		case map[string]interface{}:
			v, ok := c[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []interface{}:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(c) {
				return nil, false
			}
			cur = c[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// toMap best-effort coerces a step's inputs payload into a map for dotted
// lookups; non-map inputs (e.g. a bare number or string payload) simply
// yield no matches past the root.
func toMap(inputs interface{}) map[string]interface{} {
	if m, ok := inputs.(map[string]interface{}); ok {
		return m
	}
	return nil
}

// deepClone round-trips through JSON, matching the teacher's pattern of
// treating state as plain JSON-compatible data (spec §4.3: "deep-clone
// config mappings before passing to nodes").
func deepClone(m map[string]interface{}) (map[string]interface{}, error) {
	if m == nil {
		return make(map[string]interface{}), nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{})
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
