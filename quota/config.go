package quota

import (
	"fmt"
	"time"
)

const (
	// DefaultDefaultLimit is the process-wide limit used when nothing else
	// is configured.
	DefaultDefaultLimit = 100

	// NoDefaultLimit disables the process-wide fallback. Calls that would
	// need it fail with ErrNoDefaultLimit.
	NoDefaultLimit = -1

	// DefaultWindow is the length of a quota window.
	DefaultWindow = 60 * time.Second
)

// KeyScope selects which key holds a user's rate policy and counters.
type KeyScope string

const (
	// ScopeUser reads rate policies at permissions:{user} and counts at
	// ratelimit:{user}:{tool}, shared across tenants.
	ScopeUser KeyScope = "user"

	// ScopeTenant reads rate policies at permissions:{tenant}:{user} and
	// counts at ratelimit:{tenant}:{user}:{tool}.
	ScopeTenant KeyScope = "tenant"
)

// ParseKeyScope converts a configuration string to a KeyScope.
func ParseKeyScope(s string) (KeyScope, error) {
	switch KeyScope(s) {
	case ScopeUser, ScopeTenant:
		return KeyScope(s), nil
	case "":
		return ScopeUser, nil
	default:
		return "", fmt.Errorf("%w: unknown key scope %q", ErrInvalidConfig, s)
	}
}

// Config configures a Limiter.
type Config struct {
	// DefaultLimit applies when no stored policy yields a limit.
	// NoDefaultLimit disables the fallback.
	DefaultLimit int

	// Window is the quota window. Zero means DefaultWindow.
	Window time.Duration

	// KeyScope selects the rate policy and counter keys. Empty means ScopeUser.
	KeyScope KeyScope

	// Atomic advances counters with a single capped increment when the
	// counter store supports it.
	Atomic bool
}

// DefaultConfig returns the standard limiter configuration.
func DefaultConfig() Config {
	return Config{
		DefaultLimit: DefaultDefaultLimit,
		Window:       DefaultWindow,
		KeyScope:     ScopeUser,
	}
}

func (c Config) withDefaults() Config {
	if c.Window == 0 {
		c.Window = DefaultWindow
	}
	if c.KeyScope == "" {
		c.KeyScope = ScopeUser
	}
	return c
}

// Validate reports settings a Limiter cannot run with.
func (c Config) Validate() error {
	c = c.withDefaults()
	if c.DefaultLimit < 0 && c.DefaultLimit != NoDefaultLimit {
		return fmt.Errorf("%w: default limit %d", ErrInvalidConfig, c.DefaultLimit)
	}
	if c.Window < 0 {
		return fmt.Errorf("%w: window %s", ErrInvalidConfig, c.Window)
	}
	if _, err := ParseKeyScope(string(c.KeyScope)); err != nil {
		return err
	}
	return nil
}
