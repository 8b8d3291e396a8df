// Package policy defines policy documents, the key scheme under which they
// are stored, and the glob matching used to apply them to tool names.
//
// A policy document is a JSON object:
//
//	{"tools": ["read_*", "search"], "rate_limits": {"read_*": 30, "default": 10}}
//
// Tool patterns use "*" as a wildcard for zero or more characters. Every other
// character is literal, matching is case-sensitive and anchored at both ends.
//
// The order of rate_limits members is significant: the first pattern that
// matches a tool wins. Documents are decoded with gjson so that member order
// survives decoding.
package policy
