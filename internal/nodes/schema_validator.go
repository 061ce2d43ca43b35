package nodes

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/flowkit/engine/internal/ast"
	"github.com/flowkit/engine/internal/registry"
)

// schemaValidatorDescriptor validates a value against a JSON Schema using
// gojsonschema, grounded on the teacher's schema_validator.go
// SchemaValidatorExecutor and reusing the same library SPEC_FULL's domain
// stack names for config/payload validation.
var schemaValidatorDescriptor = registry.Descriptor{
	Identifier: "schema-validator",
	Name:       "Schema Validator",
	Version:    "1.0.0",
	ConfigKeys: []string{"schema", "data", "strict"},
	OutputKeys: []string{"valid", "errors"},
	Edges:      []string{"valid", "invalid"},
	Hints:      map[string]string{"category": "validation"},
}

type schemaValidatorNode struct{}

func (n *schemaValidatorNode) Execute(ctx registry.ExecutionContext, config map[string]interface{}) (ast.EdgeMap, error) {
	schema, ok := config["schema"]
	if !ok {
		return nil, fmt.Errorf("schema-validator: missing required config key %q", "schema")
	}

	data, ok := config["data"]
	if !ok {
		data = ctx.Inputs()
	}

	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("schema-validator: invalid schema: %w", err)
	}
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("schema-validator: serializing data: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(dataBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("schema-validator: %w", err)
	}

	if result.Valid() {
		return edge("valid", map[string]interface{}{"valid": true, "data": data}), nil
	}

	errs := make([]map[string]interface{}, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, map[string]interface{}{
			"field":       e.Field(),
			"description": e.Description(),
		})
	}

	if configBool(config, "strict", false) {
		return nil, fmt.Errorf("schema-validator: data failed validation: %v", errs)
	}
	return edge("invalid", map[string]interface{}{"valid": false, "errors": errs}), nil
}
