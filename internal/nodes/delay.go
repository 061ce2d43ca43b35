package nodes

import (
	"fmt"
	"time"

	"github.com/flowkit/engine/internal/ast"
	"github.com/flowkit/engine/internal/registry"
)

// delayDescriptor pauses the run for a configured duration, grounded on the
// teacher's delay.go DelayExecutor.
var delayDescriptor = registry.Descriptor{
	Identifier: "delay",
	Name:       "Delay",
	Version:    "1.0.0",
	ConfigKeys: []string{"duration"},
	Edges:      []string{"success"},
	Hints:      map[string]string{"category": "control-flow"},
}

type delayNode struct{}

func (n *delayNode) Execute(ctx registry.ExecutionContext, config map[string]interface{}) (ast.EdgeMap, error) {
	raw := configString(config, "duration", "")
	if raw == "" {
		return nil, fmt.Errorf("delay: missing required config key %q", "duration")
	}
	duration, err := time.ParseDuration(raw)
	if err != nil {
		return nil, fmt.Errorf("delay: invalid duration %q: %w", raw, err)
	}

	time.Sleep(duration)
	return edge("success", map[string]interface{}{"duration": raw}), nil
}
