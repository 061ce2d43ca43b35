package nodes

import (
	"fmt"

	"github.com/flowkit/engine/internal/ast"
	"github.com/flowkit/engine/internal/expression"
	"github.com/flowkit/engine/internal/registry"
)

// filterDescriptor filters an array by an expr-lang predicate evaluated per
// item (config.where, with the item bound as both `item` and `input`, per
// internal/expression's convention). Grounded on the teacher's
// control_filter.go FilterExecutor, adapted into a two-edge split between a
// non-empty and an empty result rather than always returning the (possibly
// empty) array.
var filterDescriptor = registry.Descriptor{
	Identifier: "filter",
	Name:       "Filter",
	Version:    "1.0.0",
	ConfigKeys: []string{"items", "where"},
	OutputKeys: []string{"items", "count"},
	Edges:      []string{"matched", "empty"},
	Hints:      map[string]string{"category": "array"},
}

type filterNode struct{}

func (n *filterNode) Execute(ctx registry.ExecutionContext, config map[string]interface{}) (ast.EdgeMap, error) {
	itemsRaw, ok := config["items"]
	if !ok {
		itemsRaw = ctx.Inputs()
	}
	items, ok := itemsRaw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("filter: items is not an array: %v", itemsRaw)
	}

	where := configString(config, "where", "true")
	exprCtx := &expression.Context{
		NodeResults: map[string]interface{}{},
		Variables:   ctx.State(),
		ContextVars: map[string]interface{}{},
	}

	matched := make([]interface{}, 0, len(items))
	for _, item := range items {
		ok, err := expression.Evaluate(where, item, exprCtx)
		if err != nil {
			continue
		}
		if ok {
			matched = append(matched, item)
		}
	}

	if len(matched) == 0 {
		return edge("empty", map[string]interface{}{"items": matched, "count": 0}), nil
	}
	return edge("matched", map[string]interface{}{"items": matched, "count": len(matched)}), nil
}
