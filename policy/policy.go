package policy

// DefaultLimitKey is the rate_limits member that applies when no pattern matches.
const DefaultLimitKey = "default"

// Policy is the access grant for one subject: a user, or a tenant's default.
// Policies are read-only values once decoded.
type Policy struct {
	// Tools lists the tool-name patterns the subject may invoke.
	Tools []string

	// RateLimits maps patterns (or "default") to calls per window, in
	// document order.
	RateLimits []RateLimit
}

// RateLimit is one rate_limits member.
type RateLimit struct {
	Pattern string
	Max     int
}

// Allows reports whether any tool pattern matches toolName.
func (p *Policy) Allows(toolName string) bool {
	if p == nil {
		return false
	}
	return MatchAny(p.Tools, toolName)
}

// LimitFor returns the rate limit for toolName: the first matching pattern
// in document order, else the "default" member. ok is false when neither
// applies.
func (p *Policy) LimitFor(toolName string) (limit int, ok bool) {
	if p == nil {
		return 0, false
	}

	def, hasDefault := 0, false
	for _, rl := range p.RateLimits {
		if rl.Pattern == DefaultLimitKey {
			if !hasDefault {
				def, hasDefault = rl.Max, true
			}
			continue
		}
		if Match(rl.Pattern, toolName) {
			return rl.Max, true
		}
	}
	return def, hasDefault
}
