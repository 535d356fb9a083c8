// Package schema generates the JSON schemas published by curl_describe.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

func newReflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		ExpandedStruct: true, // Root type inline, nested types under $defs
		// Nullable arguments are pointers; only jsonschema:"required" marks a field required.
		RequiredFromJSONSchemaTags: true,
	}
}

// GenerateSchema creates a JSON schema (Draft 2020-12) from a Go struct.
func GenerateSchema(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, fmt.Errorf("cannot generate schema for nil value")
	}
	s := newReflector().Reflect(v)

	jsonBytes, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema for %s: %w", reflect.TypeOf(v), err)
	}
	return jsonBytes, nil
}

// GenerateSchemas generates one schema per named value.
func GenerateSchemas(values map[string]any) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(values))
	for name, v := range values {
		s, err := GenerateSchema(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}
