package nodes

import (
	"math/rand"

	"github.com/flowkit/engine/internal/ast"
	"github.com/flowkit/engine/internal/registry"
)

// printRandomNumberDescriptor matches spec §8 scenario S1: writes an
// integer `randomNumber` to state and emits a single "success" edge.
var printRandomNumberDescriptor = registry.Descriptor{
	Identifier: "print-random-number",
	Name:       "Print Random Number",
	Version:    "1.0.0",
	OutputKeys: []string{"randomNumber"},
	Edges:      []string{"success"},
	Hints:      map[string]string{"category": "basic-io"},
}

// printRandomNumberNode writes state.randomNumber in [0, max) and emits
// "success". Grounded on the teacher's basic_io.go random-number node body,
// adapted to write through context.State() rather than return a DAG result.
type printRandomNumberNode struct{}

func (n *printRandomNumberNode) Execute(ctx registry.ExecutionContext, config map[string]interface{}) (ast.EdgeMap, error) {
	max := configInt(config, "max", 100)
	if max <= 0 {
		max = 100
	}
	value := rand.Intn(max)
	ctx.State()["randomNumber"] = value
	return edge("success", map[string]interface{}{"randomNumber": value}), nil
}

// printMessageDescriptor matches spec §8 scenario S1: writes config.message
// to state.message and emits "success".
var printMessageDescriptor = registry.Descriptor{
	Identifier: "print-message",
	Name:       "Print Message",
	Version:    "1.0.0",
	ConfigKeys: []string{"message"},
	OutputKeys: []string{"message"},
	Edges:      []string{"success"},
	Hints:      map[string]string{"category": "basic-io"},
}

type printMessageNode struct{}

func (n *printMessageNode) Execute(ctx registry.ExecutionContext, config map[string]interface{}) (ast.EdgeMap, error) {
	message := configString(config, "message", "")
	ctx.State()["message"] = message
	return edge("success", map[string]interface{}{"message": message}), nil
}
