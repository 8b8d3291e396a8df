package policy

import (
	"bytes"
	"fmt"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a policy written as YAML, with the same members and
// checks as Parse. rate_limits keep their document order. Patterns starting
// with * must be quoted in YAML.
func ParseYAML(data []byte) (*Policy, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformed)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: document is not a mapping", ErrMalformed)
	}

	p := &Policy{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i].Value, root.Content[i+1]
		if isYAMLNull(val) {
			continue
		}
		switch key {
		case "tools":
			if val.Kind != yaml.SequenceNode {
				return nil, fmt.Errorf("%w: tools is not a sequence", ErrMalformed)
			}
			for _, item := range val.Content {
				if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
					return nil, fmt.Errorf("%w: tool entry at line %d is not a string", ErrMalformed, item.Line)
				}
				p.Tools = append(p.Tools, item.Value)
			}
		case "rate_limits":
			if val.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("%w: rate_limits is not a mapping", ErrMalformed)
			}
			for j := 0; j+1 < len(val.Content); j += 2 {
				pattern, limit := val.Content[j].Value, val.Content[j+1]
				var n int32
				if limit.Kind != yaml.ScalarNode || limit.Tag != "!!int" || limit.Decode(&n) != nil {
					return nil, fmt.Errorf("%w: rate_limits[%q]: limit %q is not an integer", ErrMalformed, pattern, limit.Value)
				}
				if n < 0 {
					return nil, fmt.Errorf("%w: rate_limits[%q]: limit %d is negative", ErrMalformed, pattern, n)
				}
				p.RateLimits = append(p.RateLimits, RateLimit{Pattern: pattern, Max: int(n)})
			}
		}
	}
	return p, nil
}

// ParseAny decodes a JSON or YAML policy document.
func ParseAny(data []byte) (*Policy, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' && gjson.ValidBytes(trimmed) {
		return Parse(trimmed)
	}
	return ParseYAML(data)
}

func isYAMLNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}
