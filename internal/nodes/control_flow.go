package nodes

import (
	"fmt"

	"github.com/flowkit/engine/internal/ast"
	"github.com/flowkit/engine/internal/registry"
)

// loopNodeDescriptor matches spec §8 scenario S2: a re-entrant counting
// loop. Declared edges must include at least one branched ("again") and one
// terminal ("stop") edge, per spec §3 invariant 3.
var loopNodeDescriptor = registry.Descriptor{
	Identifier: "loop-node",
	Name:       "Counting Loop",
	Version:    "1.0.0",
	ConfigKeys: []string{"field", "limit"},
	Edges:      []string{"again", "stop"},
	Hints:      map[string]string{"category": "control-flow"},
}

// loopNode increments state[field] (default "loopCount") each re-entry while
// it is below limit (default 5), emitting "again"; once the limit is
// reached it emits "stop" without incrementing further. Grounded on the
// teacher's control_whileloop.go iteration-count shape, adapted from a
// single bounded-call summary into a per-invocation edge the engine
// re-enters (spec §4.4.3).
type loopNode struct{}

func (n *loopNode) Execute(ctx registry.ExecutionContext, config map[string]interface{}) (ast.EdgeMap, error) {
	field := configString(config, "field", "loopCount")
	limit := configInt(config, "limit", 5)
	state := ctx.State()

	count := 0
	if raw, ok := state[field]; ok {
		f, ok := toFloat(raw)
		if !ok {
			return nil, fmt.Errorf("loop-node: state.%s is not numeric: %v", field, raw)
		}
		count = int(f)
	}

	if count < limit {
		count++
		state[field] = count
		return edge("again", map[string]interface{}{field: count}), nil
	}
	return edge("stop", map[string]interface{}{field: count}), nil
}

// rangeNodeDescriptor matches spec §8 scenario S4: iterates [start, stop)
// by step, emitting one value per re-entry via "next", then "complete" once
// exhausted.
var rangeNodeDescriptor = registry.Descriptor{
	Identifier: "range",
	Name:       "Range Iterator",
	Version:    "1.0.0",
	ConfigKeys: []string{"start", "stop", "step"},
	OutputKeys: []string{"rangeValue"},
	Edges:      []string{"next", "complete"},
	Hints:      map[string]string{"category": "control-flow"},
}

// rangeNode walks a numeric range across re-entries, storing its cursor
// under its own reserved state key "_loop_cursor_<nodeID>" so it survives
// between invocations. The node deletes that key itself when it emits
// "complete"; the engine's "_loop_<instanceId>" clearing does not touch it,
// so a loop left any other way (an error, the loop bound) keeps the cursor.
// Grounded on
// the teacher's control_range.go range generator, adapted from generating
// the whole array at once into one value per re-entry.
type rangeNode struct{}

func (n *rangeNode) Execute(ctx registry.ExecutionContext, config map[string]interface{}) (ast.EdgeMap, error) {
	start := configFloat(config, "start", 0)
	stop := configFloat(config, "stop", 10)
	step := configFloat(config, "step", 1)
	if step == 0 {
		return nil, fmt.Errorf("range: step cannot be 0")
	}

	state := ctx.State()
	cursorKey := "_loop_cursor_" + ctx.NodeID()

	cursor := start
	if raw, ok := state[cursorKey]; ok {
		if f, ok := toFloat(raw); ok {
			cursor = f
		}
	}

	more := cursor < stop
	if step < 0 {
		more = cursor > stop
	}
	if !more {
		delete(state, cursorKey)
		return edge("complete", map[string]interface{}{"start": start, "stop": stop, "step": step}), nil
	}

	state["rangeValue"] = cursor
	state[cursorKey] = cursor + step
	return edge("next", map[string]interface{}{"rangeValue": cursor}), nil
}

// switchDescriptor is a multi-way decision over a list of expr-lang
// expressions evaluated in order against state/inputs; the first match
// emits "matched" with the winning case's index and label in the payload,
// and "default" if none match. The edge set is necessarily static (spec
// §4.1/§4.2 validate branches against a node type's declared edges at parse
// time), so per-case edge names are carried in the payload rather than as
// distinct declared edges.
var switchDescriptor = registry.Descriptor{
	Identifier: "switch",
	Name:       "Switch",
	Version:    "1.0.0",
	ConfigKeys: []string{"cases"},
	OutputKeys: []string{"case", "caseIndex"},
	Edges:      []string{"matched", "default"},
	Hints:      map[string]string{"category": "control-flow"},
}

// switchNode evaluates config.cases (each {"when": "expr", "case": "label"})
// in order. Grounded on the teacher's control_switch.go Cases/When shape,
// adapted from an output_path string result into the spec's two-edge model.
type switchNode struct{}

func (n *switchNode) Execute(ctx registry.ExecutionContext, config map[string]interface{}) (ast.EdgeMap, error) {
	casesRaw, _ := config["cases"].([]interface{})

	for i, raw := range casesRaw {
		m, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		when, _ := m["when"].(string)
		label, _ := m["case"].(string)
		if when == "" {
			continue
		}
		matched, err := evaluateBool(when, ctx)
		if err != nil {
			continue
		}
		if matched {
			return edge("matched", map[string]interface{}{"case": label, "caseIndex": i}), nil
		}
	}
	return edge("default", map[string]interface{}{}), nil
}
