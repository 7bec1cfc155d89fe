package protocol

import (
	"testing"
)

type sampleArgs struct {
	City string   `json:"city" jsonschema:"description=City to look up"`
	Days int      `json:"days,omitempty"`
	Tags []string `json:"tags,omitempty"`
}

func TestReflectSchema(t *testing.T) {
	schema, err := ReflectSchema(&sampleArgs{})
	if err != nil {
		t.Fatalf("ReflectSchema() error = %v", err)
	}

	if schema.Type != "object" {
		t.Errorf("type = %v, want object", schema.Type)
	}
	city, ok := schema.Properties["city"]
	if !ok {
		t.Fatalf("properties = %v, want city", schema.Properties)
	}
	if city.Type != "string" {
		t.Errorf("city.type = %v, want string", city.Type)
	}
	if city.Description != "City to look up" {
		t.Errorf("city.description = %q", city.Description)
	}
	if days, ok := schema.Properties["days"]; !ok || days.Type != "integer" {
		t.Errorf("days = %v, want integer", schema.Properties["days"])
	}
	if tags, ok := schema.Properties["tags"]; !ok || tags.Type != "array" {
		t.Errorf("tags = %v, want array", schema.Properties["tags"])
	}
}
