// Package expression evaluates the branch conditions, map/reduce transforms,
// and templated config values a parsed workflow carries as plain strings.
//
// # Overview
//
// Internally every expression is rewritten from this package's syntax into
// expr-lang/expr syntax (see convertSyntax) and run through a cached
// ExprEngine. Callers never see expr-lang directly; they call the two
// package-level entry points:
//
//	ok, err := expression.Evaluate(">100", 150.0, nil)
//	val, err := expression.EvaluateExpression("item.age * 2", item, nil)
//
// Evaluate returns a bool (for branch conditions); EvaluateExpression
// returns the raw value (for map/reduce transforms and config templating).
// Both accept a *Context carrying the node results, workflow variables, and
// context constants an expression may reference, and an optional input value
// exposed to the expression as both "item" and "input".
//
// # Expression Syntax
//
// Field access and indexing:
//
//	node.fetch1.body      // a prior node's output, by node id
//	variables.count       // a workflow variable
//	context.maxRetries     // a context constant
//	item.profile.name     // nested field access on the input value
//	items[0], items[-1]   // array indexing, negative counts from the end
//
// Operators: arithmetic (+ - * / %), comparison (== != > < >= <=), logical
// (&& || !), and string concatenation via +.
//
// # Built-in Functions
//
// String: contains, startsWith, endsWith, upper, lower, trim, toUpperCase,
// toLowerCase, split, replace, join.
//
// Array: reverse, unique, flatten, slice, first, last, sum, avg, min, max
// (sum/min/max/avg accept either an array or variadic numeric arguments).
//
// Math: pow, sqrt, plus expr-lang's built-in abs, floor, ceil, round.
//
// Date/time comparisons and coalesce() are supported directly by Evaluate;
// see expr_adapter.go's buildEnvironment for the full function set.
//
// # map() Syntax
//
// map(array, expr) uses item to refer to the current element, converted to
// expr-lang's closure form before evaluation:
//
//	map(users, item.age * 2)   ->   map(users, {#.age * 2})
//
// # Errors
//
// Evaluation failures are reported as *ExpressionError, which carries the
// offending expression, an optional character position, and an optional
// wrapped cause.
//
// # Concurrency
//
// The package-level ExprEngine is a singleton guarded by sync.Once; its
// compiled-program cache is safe for concurrent use by multiple goroutines.
package expression
