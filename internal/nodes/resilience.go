package nodes

import (
	"fmt"
	"math"
	"time"

	"github.com/flowkit/engine/internal/ast"
	"github.com/flowkit/engine/internal/registry"
)

// tryCatchDescriptor evaluates an expr-lang expression and routes evaluation
// failures to "catch" instead of aborting the run, grounded on the teacher's
// trycatch.go TryCatchExecutor (there a thin delegate onto the engine's own
// recovery; here the engine already isolates node failures per spec §5, so
// tryCatch's distinct contribution is catching an *expression* error rather
// than a node panic).
var tryCatchDescriptor = registry.Descriptor{
	Identifier: "try-catch",
	Name:       "Try/Catch",
	Version:    "1.0.0",
	ConfigKeys: []string{"expression"},
	OutputKeys: []string{"value", "error"},
	Edges:      []string{"try", "catch"},
	Hints:      map[string]string{"category": "resilience"},
}

type tryCatchNode struct{}

func (n *tryCatchNode) Execute(ctx registry.ExecutionContext, config map[string]interface{}) (ast.EdgeMap, error) {
	exprStr := configString(config, "expression", "")
	if exprStr == "" {
		return edge("try", map[string]interface{}{"value": ctx.Inputs()}), nil
	}
	result, err := evalValue(exprStr, ctx)
	if err != nil {
		return edge("catch", map[string]interface{}{"error": err.Error()}), nil
	}
	return edge("try", map[string]interface{}{"value": result}), nil
}

// retryDescriptor is a re-entrant retry loop: the workflow wires it the same
// way as loop-node/range (spec §4.4.3 re-entry protocol), and each
// invocation either reports success, requests another attempt after a
// backoff delay, or gives up once maxAttempts is exhausted. Grounded on the
// teacher's retry.go RetryExecutor backoff math, adapted from a single
// in-process retry loop (the teacher re-executes a prior node synchronously)
// into per-invocation state since this engine re-enters loop nodes through
// the execution graph rather than nesting calls.
var retryDescriptor = registry.Descriptor{
	Identifier: "retry",
	Name:       "Retry",
	Version:    "1.0.0",
	ConfigKeys: []string{"succeeded", "maxAttempts", "backoffStrategy", "initialDelay", "maxDelay", "multiplier"},
	OutputKeys: []string{"attempt"},
	Edges:      []string{"retry", "success", "exhausted"},
	Hints:      map[string]string{"category": "resilience"},
}

type retryNode struct{}

func (n *retryNode) Execute(ctx registry.ExecutionContext, config map[string]interface{}) (ast.EdgeMap, error) {
	succeeded := configBool(config, "succeeded", false)
	maxAttempts := configInt(config, "maxAttempts", 3)
	strategy := configString(config, "backoffStrategy", "exponential")
	initialDelay := configDuration(config, "initialDelay", time.Second)
	maxDelay := configDuration(config, "maxDelay", 30*time.Second)
	multiplier := configFloat(config, "multiplier", 2.0)

	state := ctx.State()
	attemptKey := "_retry_attempt_" + ctx.NodeID()

	attempt := 1
	if raw, ok := state[attemptKey]; ok {
		if f, ok := toFloat(raw); ok {
			attempt = int(f)
		}
	}

	if succeeded {
		delete(state, attemptKey)
		return edge("success", map[string]interface{}{"attempt": attempt}), nil
	}

	if attempt >= maxAttempts {
		delete(state, attemptKey)
		return edge("exhausted", map[string]interface{}{"attempt": attempt}), nil
	}

	delay := backoffDelay(strategy, initialDelay, maxDelay, multiplier, attempt)
	state[attemptKey] = attempt + 1
	return edge("retry", map[string]interface{}{"attempt": attempt, "delay": delay.String()}), nil
}

func backoffDelay(strategy string, initial, max time.Duration, multiplier float64, attempt int) time.Duration {
	var delay time.Duration
	switch strategy {
	case "linear":
		delay = initial * time.Duration(attempt)
	case "constant":
		delay = initial
	default: // exponential
		delay = time.Duration(float64(initial) * math.Pow(multiplier, float64(attempt-1)))
	}
	if delay > max {
		delay = max
	}
	return delay
}

// timeoutDescriptor enforces a time budget on a reported execution duration,
// grounded on the teacher's timeout.go TimeoutExecutor, adapted from
// simulating a wrapped call into reading the elapsed time a prior node
// reported (config.elapsed) against the budget.
var timeoutDescriptor = registry.Descriptor{
	Identifier: "timeout",
	Name:       "Timeout",
	Version:    "1.0.0",
	ConfigKeys: []string{"timeout", "elapsed"},
	OutputKeys: []string{"timedOut"},
	Edges:      []string{"success", "timedOut"},
	Hints:      map[string]string{"category": "resilience"},
}

type timeoutNode struct{}

func (n *timeoutNode) Execute(ctx registry.ExecutionContext, config map[string]interface{}) (ast.EdgeMap, error) {
	budget := configDuration(config, "timeout", 30*time.Second)
	elapsed := configDuration(config, "elapsed", 0)

	if elapsed > budget {
		return edge("timedOut", map[string]interface{}{
			"timeout": budget.String(),
			"elapsed": elapsed.String(),
		}), nil
	}
	return edge("success", map[string]interface{}{
		"timeout": budget.String(),
		"elapsed": elapsed.String(),
	}), nil
}

func configDuration(cfg map[string]interface{}, key string, def time.Duration) time.Duration {
	raw, ok := cfg[key]
	if !ok {
		return def
	}
	switch v := raw.(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		return def
	case float64:
		return time.Duration(v) * time.Millisecond
	default:
		return def
	}
}
