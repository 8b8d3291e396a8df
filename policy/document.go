package policy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Parse decodes a policy document. Missing or null members decode as empty.
// Tool entries must be strings and limits must be non-negative integers;
// anything else is ErrMalformed.
func Parse(data []byte) (*Policy, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformed)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: document is not an object", ErrMalformed)
	}

	p := &Policy{}

	if tools := root.Get("tools"); tools.Exists() && tools.Type != gjson.Null {
		if !tools.IsArray() {
			return nil, fmt.Errorf("%w: tools is not an array", ErrMalformed)
		}
		var err error
		tools.ForEach(func(_, v gjson.Result) bool {
			if v.Type != gjson.String {
				err = fmt.Errorf("%w: tool entry %s is not a string", ErrMalformed, v.Raw)
				return false
			}
			p.Tools = append(p.Tools, v.String())
			return true
		})
		if err != nil {
			return nil, err
		}
	}

	if limits := root.Get("rate_limits"); limits.Exists() && limits.Type != gjson.Null {
		if !limits.IsObject() {
			return nil, fmt.Errorf("%w: rate_limits is not an object", ErrMalformed)
		}
		var err error
		limits.ForEach(func(k, v gjson.Result) bool {
			max, perr := parseLimit(v)
			if perr != nil {
				err = fmt.Errorf("%w: rate_limits[%q]: %v", ErrMalformed, k.String(), perr)
				return false
			}
			p.RateLimits = append(p.RateLimits, RateLimit{Pattern: k.String(), Max: max})
			return true
		})
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}

func parseLimit(v gjson.Result) (int, error) {
	if v.Type != gjson.Number {
		return 0, fmt.Errorf("limit %s is not a number", v.Raw)
	}
	n, err := strconv.ParseInt(v.Raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("limit %s is not an integer", v.Raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("limit %d is negative", n)
	}
	return int(n), nil
}

// Encode renders p as a policy document, preserving rate_limits order.
func Encode(p *Policy) ([]byte, error) {
	if p == nil {
		p = &Policy{}
	}

	tools := p.Tools
	if tools == nil {
		tools = []string{}
	}

	doc, err := sjson.SetBytes([]byte(`{}`), "tools", tools)
	if err != nil {
		return nil, fmt.Errorf("policy: encode tools: %w", err)
	}
	doc, err = sjson.SetRawBytes(doc, "rate_limits", []byte(`{}`))
	if err != nil {
		return nil, fmt.Errorf("policy: encode rate_limits: %w", err)
	}
	for _, rl := range p.RateLimits {
		if rl.Max < 0 {
			return nil, fmt.Errorf("policy: encode rate_limits[%q]: negative limit", rl.Pattern)
		}
		doc, err = sjson.SetBytes(doc, "rate_limits."+escapePath(rl.Pattern), rl.Max)
		if err != nil {
			return nil, fmt.Errorf("policy: encode rate_limits[%q]: %w", rl.Pattern, err)
		}
	}
	return doc, nil
}

// escapePath escapes characters that sjson treats as path syntax.
func escapePath(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '\\', '|', '#', '@', '!', '=', '<', '>', '%', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
