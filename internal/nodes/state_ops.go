package nodes

import (
	"fmt"
	"time"

	"github.com/flowkit/engine/internal/ast"
	"github.com/flowkit/engine/internal/registry"
)

// variableDescriptor get/sets a named slot in workflow state. Grounded on the
// teacher's variable.go VariableExecutor, adapted from the DAG's
// GetVariable/SetVariable ExecutionContext methods onto the shared state map
// directly (the State Manager already is the workflow-scoped variable
// store, spec §4.3).
var variableDescriptor = registry.Descriptor{
	Identifier: "variable",
	Name:       "Variable",
	Version:    "1.0.0",
	ConfigKeys: []string{"name", "op", "value"},
	OutputKeys: []string{"value"},
	Edges:      []string{"success"},
	Hints:      map[string]string{"category": "state"},
}

type variableNode struct{}

func (n *variableNode) Execute(ctx registry.ExecutionContext, config map[string]interface{}) (ast.EdgeMap, error) {
	name := configString(config, "name", "")
	if name == "" {
		return nil, fmt.Errorf("variable: missing required config key %q", "name")
	}
	op := configString(config, "op", "get")
	state := ctx.State()

	switch op {
	case "set":
		value, ok := config["value"]
		if !ok {
			return nil, fmt.Errorf("variable: set requires config key %q", "value")
		}
		value = ctx.Resolve(value)
		state[name] = value
		return edge("success", map[string]interface{}{"name": name, "op": op, "value": value}), nil

	case "get":
		value := state[name]
		return edge("success", map[string]interface{}{"name": name, "op": op, "value": value}), nil

	default:
		return nil, fmt.Errorf("variable: unsupported op %q (use get or set)", op)
	}
}

// counterDescriptor maintains a single named numeric slot with
// increment/decrement/reset/get operations. Grounded on the teacher's
// counter.go CounterExecutor.
var counterDescriptor = registry.Descriptor{
	Identifier: "counter",
	Name:       "Counter",
	Version:    "1.0.0",
	ConfigKeys: []string{"name", "op", "delta", "initial"},
	OutputKeys: []string{"value"},
	Edges:      []string{"success"},
	Hints:      map[string]string{"category": "state"},
}

type counterNode struct{}

func (n *counterNode) Execute(ctx registry.ExecutionContext, config map[string]interface{}) (ast.EdgeMap, error) {
	name := configString(config, "name", "counter")
	op := configString(config, "op", "increment")
	delta := configFloat(config, "delta", 1)
	initial := configFloat(config, "initial", 0)
	state := ctx.State()

	current := initial
	if raw, ok := state[name]; ok {
		if f, ok := toFloat(raw); ok {
			current = f
		}
	}

	switch op {
	case "increment":
		current += delta
	case "decrement":
		current -= delta
	case "reset":
		current = initial
	case "get":
	default:
		return nil, fmt.Errorf("counter: unsupported op %q (use increment, decrement, reset, or get)", op)
	}

	state[name] = current
	return edge("success", map[string]interface{}{"name": name, "op": op, "value": current}), nil
}

// accumulatorDescriptor folds successive input values into a running
// sum/product/concat/array/count, grounded on the teacher's accumulator.go
// AccumulatorExecutor.
var accumulatorDescriptor = registry.Descriptor{
	Identifier: "accumulator",
	Name:       "Accumulator",
	Version:    "1.0.0",
	ConfigKeys: []string{"name", "op", "value"},
	OutputKeys: []string{"value"},
	Edges:      []string{"success"},
	Hints:      map[string]string{"category": "state"},
}

type accumulatorNode struct{}

func (n *accumulatorNode) Execute(ctx registry.ExecutionContext, config map[string]interface{}) (ast.EdgeMap, error) {
	name := configString(config, "name", "accumulator")
	op := configString(config, "op", "sum")
	state := ctx.State()

	current, ok := state[name]
	if !ok {
		current = accumulatorInitialValue(op)
	}

	value, hasValue := config["value"]
	if !hasValue {
		return edge("success", map[string]interface{}{"name": name, "op": op, "value": current}), nil
	}
	value = ctx.Resolve(value)

	next, err := accumulate(op, current, value)
	if err != nil {
		return nil, fmt.Errorf("accumulator: %w", err)
	}
	state[name] = next
	return edge("success", map[string]interface{}{"name": name, "op": op, "value": next}), nil
}

func accumulatorInitialValue(op string) interface{} {
	switch op {
	case "sum", "count":
		return 0.0
	case "product":
		return 1.0
	case "concat":
		return ""
	case "array":
		return []interface{}{}
	default:
		return nil
	}
}

func accumulate(op string, current, value interface{}) (interface{}, error) {
	switch op {
	case "sum":
		c, _ := toFloat(current)
		v, ok := toFloat(value)
		if !ok {
			return nil, fmt.Errorf("sum requires a numeric value, got %v", value)
		}
		return c + v, nil
	case "product":
		c, _ := toFloat(current)
		v, ok := toFloat(value)
		if !ok {
			return nil, fmt.Errorf("product requires a numeric value, got %v", value)
		}
		return c * v, nil
	case "count":
		c, _ := toFloat(current)
		return c + 1, nil
	case "concat":
		c, _ := current.(string)
		v := fmt.Sprintf("%v", value)
		return c + v, nil
	case "array":
		c, _ := current.([]interface{})
		return append(c, value), nil
	default:
		return nil, fmt.Errorf("unsupported accumulator op %q", op)
	}
}

// cacheDescriptor is an in-process TTL cache keyed by config.key, grounded on
// the teacher's cache.go CacheExecutor. Per spec §9's service-injection note
// this stores entries directly in workflow state under a reserved namespace
// rather than requiring an injected service, since a workflow-scoped cache
// needs no cross-execution sharing.
var cacheDescriptor = registry.Descriptor{
	Identifier: "cache",
	Name:       "Cache",
	Version:    "1.0.0",
	ConfigKeys: []string{"key", "op", "value", "ttl"},
	OutputKeys: []string{"found", "value"},
	Edges:      []string{"success"},
	Hints:      map[string]string{"category": "state"},
}

type cacheEntry struct {
	value   interface{}
	expires time.Time
}

type cacheNode struct{}

func (n *cacheNode) Execute(ctx registry.ExecutionContext, config map[string]interface{}) (ast.EdgeMap, error) {
	key := configString(config, "key", "")
	if key == "" {
		return nil, fmt.Errorf("cache: missing required config key %q", "key")
	}
	op := configString(config, "op", "get")
	state := ctx.State()
	storeKey := "_cache_store_"

	store, _ := state[storeKey].(map[string]cacheEntry)
	if store == nil {
		store = map[string]cacheEntry{}
		state[storeKey] = store
	}

	switch op {
	case "set":
		value, ok := config["value"]
		if !ok {
			return nil, fmt.Errorf("cache: set requires config key %q", "value")
		}
		ttl := 5 * time.Minute
		if ttlStr := configString(config, "ttl", ""); ttlStr != "" {
			parsed, err := time.ParseDuration(ttlStr)
			if err != nil {
				return nil, fmt.Errorf("cache: invalid ttl %q: %w", ttlStr, err)
			}
			ttl = parsed
		}
		store[key] = cacheEntry{value: ctx.Resolve(value), expires: time.Now().Add(ttl)}
		return edge("success", map[string]interface{}{"key": key, "op": op, "found": true, "value": value}), nil

	case "get":
		entry, ok := store[key]
		if !ok || time.Now().After(entry.expires) {
			delete(store, key)
			return edge("success", map[string]interface{}{"key": key, "op": op, "found": false, "value": nil}), nil
		}
		return edge("success", map[string]interface{}{"key": key, "op": op, "found": true, "value": entry.value}), nil

	case "delete":
		delete(store, key)
		return edge("success", map[string]interface{}{"key": key, "op": op, "found": false}), nil

	default:
		return nil, fmt.Errorf("cache: unsupported op %q (use get, set, or delete)", op)
	}
}
