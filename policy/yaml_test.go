package policy

import (
	"errors"
	"testing"
)

func TestParseYAML(t *testing.T) {
	doc := []byte(`
tools:
  - finance_*
  - "*_read"
rate_limits:
  finance_*: 10
  default: 5
`)
	p, err := ParseYAML(doc)
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}
	if len(p.Tools) != 2 || p.Tools[0] != "finance_*" || p.Tools[1] != "*_read" {
		t.Errorf("Tools = %v", p.Tools)
	}
	want := []RateLimit{{Pattern: "finance_*", Max: 10}, {Pattern: "default", Max: 5}}
	if len(p.RateLimits) != len(want) {
		t.Fatalf("RateLimits = %v, want %v", p.RateLimits, want)
	}
	for i := range want {
		if p.RateLimits[i] != want[i] {
			t.Errorf("RateLimits[%d] = %v, want %v", i, p.RateLimits[i], want[i])
		}
	}
}

func TestParseYAML_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"scalar", "hello"},
		{"tools not a list", "tools: finance_*"},
		{"tool not a string", "tools: [1]"},
		{"limits not a mapping", "rate_limits: [1]"},
		{"limit not an integer", "rate_limits: {default: 1.5}"},
		{"limit quoted", `rate_limits: {default: "5"}`},
		{"negative limit", "rate_limits: {default: -1}"},
		{"bad yaml", "tools: [unclosed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseYAML([]byte(tt.doc)); !errors.Is(err, ErrMalformed) {
				t.Errorf("ParseYAML(%q) error = %v, want ErrMalformed", tt.doc, err)
			}
		})
	}
}

func TestParseYAML_NullMembers(t *testing.T) {
	p, err := ParseYAML([]byte("tools: null\nrate_limits: ~\n"))
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}
	if len(p.Tools) != 0 || len(p.RateLimits) != 0 {
		t.Errorf("ParseYAML() = %+v, want empty policy", p)
	}
}

func TestParseAny(t *testing.T) {
	fromJSON, err := ParseAny([]byte(`  {"tools":["a_*"],"rate_limits":{"default":3}}`))
	if err != nil {
		t.Fatalf("ParseAny(json) error = %v", err)
	}
	fromYAML, err := ParseAny([]byte("tools: [a_*]\nrate_limits: {default: 3}\n"))
	if err != nil {
		t.Fatalf("ParseAny(yaml) error = %v", err)
	}
	for _, p := range []*Policy{fromJSON, fromYAML} {
		if !p.Allows("a_b") {
			t.Errorf("policy %+v does not allow a_b", p)
		}
		if limit, ok := p.LimitFor("a_b"); !ok || limit != 3 {
			t.Errorf("LimitFor(a_b) = (%d, %v), want (3, true)", limit, ok)
		}
	}
}
