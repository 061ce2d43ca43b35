package nodes

import (
	"github.com/flowkit/engine/internal/expression"
	"github.com/flowkit/engine/internal/registry"
)

// evaluateBool evaluates expr against the node's current state and inputs,
// the shared plumbing switch and filter use to reach the expr-lang/expr
// evaluator (SPEC_FULL §4.6 domain stack; internal/expression adapts
// expr-lang/expr for workflow conditions).
func evaluateBool(expr string, ctx registry.ExecutionContext) (bool, error) {
	return expression.Evaluate(expr, ctx.Inputs(), &expression.Context{
		NodeResults: map[string]interface{}{},
		Variables:   ctx.State(),
		ContextVars: map[string]interface{}{},
	})
}

// evalValue evaluates expr and returns its raw result, used by nodes (like
// try-catch) that need a value rather than a boolean branch decision.
func evalValue(expr string, ctx registry.ExecutionContext) (interface{}, error) {
	return expression.EvaluateExpression(expr, ctx.Inputs(), &expression.Context{
		NodeResults: map[string]interface{}{},
		Variables:   ctx.State(),
		ContextVars: map[string]interface{}{},
	})
}
