package events

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// FrameSchema returns the JSON schema every status frame must satisfy.
//
// Only type-shape is checked. upload_id, status and type are required.
func FrameSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"upload_id": map[string]any{"type": "integer"},
			"status":    map[string]any{"type": "string", "minLength": 1},
			"type":      map[string]any{"type": "string", "minLength": 1},
			"finished":  map[string]any{"type": []string{"boolean", "null"}},
			"error":     map[string]any{"type": []string{"string", "null"}},
		},
		"required": []string{"upload_id", "status", "type"},
	}
}

var frameSchema = mustCompile(FrameSchema())

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("frame.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("frame.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func mustCompile(schemaMap map[string]any) *jsonschema.Schema {
	schema, err := compileSchema(schemaMap)
	if err != nil {
		panic(fmt.Sprintf("events: invalid frame schema: %v", err))
	}
	return schema
}
