package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// ReflectSchema derives an InputSchema from a Go struct using its json tags.
// Inline tools describe their arguments with a typed struct and let
// reflection produce the wire schema.
func ReflectSchema(v interface{}) (*InputSchema, error) {
	reflector := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}

	schema := reflector.Reflect(v)

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reflected schema: %w", err)
	}

	var result InputSchema
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode reflected schema: %w", err)
	}
	if result.Type == "" {
		result.Type = "object"
	}
	return &result, nil
}

// MustReflectSchema is ReflectSchema for static tool definitions where a
// reflection failure is a programming error.
func MustReflectSchema(v interface{}) *InputSchema {
	schema, err := ReflectSchema(v)
	if err != nil {
		panic(err)
	}
	return schema
}
