package policy

import "strings"

// Wildcard matches zero or more arbitrary characters in a pattern.
const Wildcard = "*"

// Match reports whether name matches pattern in full. A "*" in pattern
// matches any run of characters, including none; all other characters
// match literally and case-sensitively.
func Match(pattern, name string) bool {
	if !strings.Contains(pattern, Wildcard) {
		return pattern == name
	}

	parts := strings.Split(pattern, Wildcard)
	head, tail := parts[0], parts[len(parts)-1]

	if !strings.HasPrefix(name, head) {
		return false
	}
	rest := name[len(head):]

	if len(rest) < len(tail) || !strings.HasSuffix(rest, tail) {
		return false
	}
	rest = rest[:len(rest)-len(tail)]

	// Leftmost placement of each inner literal leaves the most room for the
	// ones after it, so a greedy scan is exact for "*"-only globs.
	for _, part := range parts[1 : len(parts)-1] {
		if part == "" {
			continue
		}
		idx := strings.Index(rest, part)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(part):]
	}
	return true
}

// MatchAny reports whether name matches at least one pattern.
func MatchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if Match(p, name) {
			return true
		}
	}
	return false
}
