package qcconfig

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"checkqc/pkg/domain"
)

// eachPair walks a mapping node in document order. Keys are taken verbatim so
// unquoted read lengths such as 36 are handled like "36".
func eachPair(node *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	seen := make(map[string]bool, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if key.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: mapping keys must be scalars", key.Line)
		}
		if seen[key.Value] {
			return fmt.Errorf("line %d: duplicate key %q", key.Line, key.Value)
		}
		seen[key.Value] = true
		if err := fn(key.Value, node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func decodeInstrument(node *yaml.Node) (Instrument, error) {
	inst := Instrument{ReadLengths: make(map[string]domain.ReadLengthConfig)}
	err := eachPair(node, func(key string, value *yaml.Node) error {
		if key == defaultHandlersKey {
			specs, err := decodeSpecs(value)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			inst.DefaultHandlers = specs
			return nil
		}
		entry, err := decodeReadLength(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		inst.ReadLengths[key] = entry
		return nil
	})
	return inst, err
}

func decodeReadLength(node *yaml.Node) (domain.ReadLengthConfig, error) {
	var entry domain.ReadLengthConfig
	err := eachPair(node, func(key string, value *yaml.Node) error {
		switch key {
		case "view":
			return value.Decode(&entry.View)
		case "handlers":
			specs, err := decodeSpecs(value)
			if err != nil {
				return fmt.Errorf("handlers: %w", err)
			}
			entry.Handlers = specs
			return nil
		default:
			return fmt.Errorf("line %d: unknown field %q", value.Line, key)
		}
	})
	return entry, err
}

func decodeSpecs(node *yaml.Node) ([]domain.HandlerSpec, error) {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: expected a list of handlers", node.Line)
	}
	specs := make([]domain.HandlerSpec, 0, len(node.Content))
	for _, item := range node.Content {
		var spec handlerSpec
		if err := item.Decode(&spec); err != nil {
			return nil, err
		}
		specs = append(specs, domain.HandlerSpec(spec))
	}
	return specs, nil
}

// handlerSpec decodes one handler entry: name, error and warning are lifted
// out, every other key becomes a handler option.
type handlerSpec domain.HandlerSpec

func (s *handlerSpec) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	for key, value := range raw {
		switch key {
		case "name":
			name, ok := value.(string)
			if !ok {
				return fmt.Errorf("line %d: handler name must be a string", node.Line)
			}
			s.Name = name
		case "error", "warning":
			f, ok := toFloat(value)
			if !ok {
				return fmt.Errorf("line %d: %s threshold must be a number, got %v", node.Line, key, value)
			}
			if key == "error" {
				s.Error = &f
			} else {
				s.Warning = &f
			}
		default:
			if s.Options == nil {
				s.Options = make(map[string]any)
			}
			s.Options[key] = value
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
