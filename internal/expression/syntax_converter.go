package expression

import (
	"regexp"
	"strings"
)

// convertSyntax rewrites this package's workflow-expression syntax into
// expr-lang syntax before evaluation.
func convertSyntax(expression string) string {
	// A comparison with no left operand compares against the input value:
	// ">100" becomes "input >100", ">100 && <200" becomes
	// "input >100 && input <200"
	bareCmpRe := regexp.MustCompile(`(^|&&|\|\|)(\s*)(>=|<=|==|!=|>|<)`)
	expression = bareCmpRe.ReplaceAllString(expression, "${1}${2}input ${3}")

	// Convert .length property to float(len()), so lengths are float64 like
	// every other number in workflow data
	// Match: somevar.field.length or item.array.length
	lengthRe := regexp.MustCompile(`(\w+(?:\.\w+|\[\d+\])*?)\.length\b`)
	expression = lengthRe.ReplaceAllString(expression, "float(len($1))")

	// Convert map(array, expr) syntax to map(array, {closure})
	// This is more complex as we need to handle nested expressions
	expression = convertMapSyntax(expression)

	return expression
}

// convertMapSyntax converts map() function calls from this package's
// item-based syntax to expr-lang's closure syntax:
//
//	workflow:  map(users, item.age * 2)
//	expr-lang: map(users, {#.age * 2})
func convertMapSyntax(expression string) string {
	// Find map() calls
	mapRe := regexp.MustCompile(`map\s*\(\s*([^,]+),\s*(.+?)\s*\)`)
	
	// Process each map() call
	for {
		matches := mapRe.FindStringSubmatch(expression)
		if matches == nil {
			break
		}
		
		fullMatch := matches[0]
		arrayExpr := strings.TrimSpace(matches[1])
		itemExpr := strings.TrimSpace(matches[2])
		
		// Convert item references to # in the closure
		// Replace 'item.' with '#.' and standalone 'item' with '#'
		closureExpr := itemExpr
		closureExpr = regexp.MustCompile(`\bitem\.`).ReplaceAllString(closureExpr, "#.")
		closureExpr = regexp.MustCompile(`\bitem\b`).ReplaceAllString(closureExpr, "#")
		
		// Reconstruct the map call with closure syntax
		newMapCall := "map(" + arrayExpr + ", {" + closureExpr + "})"
		
		// Replace in expression
		expression = strings.Replace(expression, fullMatch, newMapCall, 1)
	}
	
	return expression
}
