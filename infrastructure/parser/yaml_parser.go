// Package parser decodes host module configuration files.
package parser

import (
	"fmt"

	"github.com/RekGRpth/pg-curl-sub000/domain/ports"
	"gopkg.in/yaml.v3"
)

// YAMLConfigParser implements ConfigParser for YAML (and therefore JSON) documents.
type YAMLConfigParser struct{}

// NewYAMLConfigParser creates a new YAMLConfigParser.
func NewYAMLConfigParser() ports.ConfigParser {
	return &YAMLConfigParser{}
}

// Parse unmarshals YAML bytes into a map. An empty document yields an empty map.
func (p *YAMLConfigParser) Parse(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}
