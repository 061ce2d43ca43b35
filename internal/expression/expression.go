// Package expression evaluates the boolean and value expressions a workflow
// uses for branch conditions, map/reduce transforms, and templated config
// values — node references, workflow variables, and context constants, with
// no template delimiters required.
package expression

import (
	"sync"
)

// Context provides access to workflow state during expression evaluation
type Context struct {
	NodeResults map[string]interface{} // Results from executed nodes
	Variables   map[string]interface{} // Workflow variables
	ContextVars map[string]interface{} // Context variables/constants
}

var (
	// Global engine instance for reuse and caching
	globalEngine *ExprEngine
	engineOnce   sync.Once
)

// getEngine returns the singleton expression engine
func getEngine() *ExprEngine {
	engineOnce.Do(func() {
		globalEngine = NewExprEngine()
	})
	return globalEngine
}

// Evaluate evaluates an expression and returns a boolean result
// Now powered by expr-lang/expr for better performance.
// Supports:
//   - Simple comparisons: ">100", "==5", "!=0", "value > 100"
//   - Node references: "node.id.output > 100"
//   - Variable references: "variables.count > 10"
//   - Context references: "context.maxValue < 50"
//   - Boolean operators: "&&", "||", "!"
//   - String operations: "contains(str, substr)", "startsWith()", etc.
func Evaluate(expression string, input interface{}, ctx *Context) (bool, error) {
	if ctx == nil {
		ctx = &Context{
			NodeResults: make(map[string]interface{}),
			Variables:   make(map[string]interface{}),
			ContextVars: make(map[string]interface{}),
		}
	}

	// If input is provided, ensure it's available as both 'item' and 'input'
	if input != nil {
		_, hasItem := ctx.Variables["item"]
		_, hasInput := ctx.Variables["input"]
		if !hasItem || !hasInput {
			// Create a copy of the context with item and input added
			newCtx := &Context{
				NodeResults: ctx.NodeResults,
				Variables:   make(map[string]interface{}),
				ContextVars: ctx.ContextVars,
			}
			// Copy existing variables
			for k, v := range ctx.Variables {
				newCtx.Variables[k] = v
			}
			// Add item and input
			if !hasItem {
				newCtx.Variables["item"] = input
			}
			if !hasInput {
				newCtx.Variables["input"] = input
			}
			ctx = newCtx
		}
	}

	// Use expr-lang/expr engine
	engine := getEngine()
	return engine.EvaluateBoolean(expression, input, ctx)
}

// EvaluateExpression evaluates an expression and returns its value (not just boolean)
// Now powered by expr-lang/expr for better performance.
// This is used for transformations in Map and Reduce nodes.
// Supports:
//   - Arithmetic expressions: "item.age * 2", "accumulator + item.value"
//   - Ternary operator: "condition ? value1 : value2"
//   - String concatenation: "accumulator + item"
//   - Field access: "item.field", "item.nested.field"
//   - All value references (variables, node, context)
func EvaluateExpression(expression string, input interface{}, ctx *Context) (interface{}, error) {
	if ctx == nil {
		ctx = &Context{
			NodeResults: make(map[string]interface{}),
			Variables:   make(map[string]interface{}),
			ContextVars: make(map[string]interface{}),
		}
	}

	// If input is provided, ensure it's available as both 'item' and 'input'
	if input != nil {
		_, hasItem := ctx.Variables["item"]
		_, hasInput := ctx.Variables["input"]
		if !hasItem || !hasInput {
			// Create a shallow copy of the context and variables map
			newCtx := &Context{
				NodeResults: ctx.NodeResults,
				Variables:   make(map[string]interface{}),
				ContextVars: ctx.ContextVars,
			}
			for k, v := range ctx.Variables {
				newCtx.Variables[k] = v
			}
			if !hasItem {
				newCtx.Variables["item"] = input
			}
			if !hasInput {
				newCtx.Variables["input"] = input
			}
			ctx = newCtx
		}
	}

	// Use expr-lang/expr engine
	engine := getEngine()
	return engine.EvaluateValue(expression, input, ctx)
}

