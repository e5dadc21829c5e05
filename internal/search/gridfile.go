package search

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParseGrid reads a YAML mapping of parameter name to value list,
// preserving the file's key order so enumeration stays stable:
//
//	prune_method: [prune_by_class, prune_by_noise_rate, both]
//	converge_latent_estimates: [true, false]
//
// A scalar value is shorthand for a single-element list.
func ParseGrid(data []byte) (*Grid, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse grid: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("grid file is empty")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("grid file must map parameter names to value lists")
	}

	g := NewGrid()
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valNode := root.Content[i], root.Content[i+1]
		var key string
		if err := keyNode.Decode(&key); err != nil {
			return nil, fmt.Errorf("grid key at line %d: %w", keyNode.Line, err)
		}

		switch valNode.Kind {
		case yaml.SequenceNode:
			values := make([]any, 0, len(valNode.Content))
			for _, item := range valNode.Content {
				var v any
				if err := item.Decode(&v); err != nil {
					return nil, fmt.Errorf("grid value for %q at line %d: %w", key, item.Line, err)
				}
				values = append(values, v)
			}
			g.Add(key, values...)
		case yaml.ScalarNode:
			var v any
			if err := valNode.Decode(&v); err != nil {
				return nil, fmt.Errorf("grid value for %q at line %d: %w", key, valNode.Line, err)
			}
			g.Add(key, v)
		default:
			return nil, fmt.Errorf("grid values for %q must be a list or scalar", key)
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// LoadGrid reads and parses a grid YAML file.
func LoadGrid(path string) (*Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grid file: %w", err)
	}
	return ParseGrid(data)
}
