package secret

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Resolver expands a value and then resolves its secret references.
type Resolver struct {
	providers map[string]Provider
	lookup    LookupFunc
	strict    bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLookup replaces the environment used for ${VAR} expansion.
func WithLookup(lookup LookupFunc) Option {
	return func(r *Resolver) {
		if lookup != nil {
			r.lookup = lookup
		}
	}
}

// WithStrict makes a reference that resolves to "" an error.
func WithStrict() Option {
	return func(r *Resolver) {
		r.strict = true
	}
}

// WithProvider registers p, replacing any provider of the same name.
func WithProvider(p Provider) Option {
	return func(r *Resolver) {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
}

// NewResolver creates a resolver with the env and file providers. The env
// provider reads the same environment as expansion.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		providers: make(map[string]Provider),
		lookup:    os.LookupEnv,
	}
	for _, opt := range opts {
		opt(r)
	}
	if _, ok := r.providers["env"]; !ok {
		r.providers["env"] = &EnvProvider{Lookup: r.lookup}
	}
	if _, ok := r.providers["file"]; !ok {
		r.providers["file"] = &FileProvider{}
	}
	return r
}

// ResolveValue resolves environment variables and secret refs in value.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandStrict(value, r.lookup)
	if err != nil {
		return "", err
	}
	if providerName, ref, ok := ParseSecretRef(expanded); ok {
		return r.resolveSingle(ctx, providerName, ref)
	}
	return r.resolveInline(ctx, expanded)
}

// ResolveMap resolves each value in input.
func (r *Resolver) ResolveMap(ctx context.Context, input map[string]string) (map[string]string, error) {
	if input == nil {
		return nil, nil
	}
	out := make(map[string]string, len(input))
	for k, v := range input {
		resolved, err := r.ResolveValue(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}

// ParseSecretRef parses a full secret reference of the form:
//
//	secretref:<provider>:<ref>
func ParseSecretRef(value string) (provider string, ref string, ok bool) {
	const prefix = "secretref:"
	if !strings.HasPrefix(value, prefix) {
		return "", "", false
	}
	provider, ref, ok = strings.Cut(strings.TrimPrefix(value, prefix), ":")
	if !ok || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

func (r *Resolver) resolveSingle(ctx context.Context, providerName string, ref string) (string, error) {
	provider, ok := r.providers[providerName]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, providerName)
	}
	resolved, err := provider.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if r.strict && resolved == "" {
		return "", fmt.Errorf("%w: provider %q", ErrEmpty, providerName)
	}
	return resolved, nil
}

var inlineSecretRefPattern = regexp.MustCompile(`secretref:([^:\s]+):([^\s]+)`)

func (r *Resolver) resolveInline(ctx context.Context, value string) (string, error) {
	matches := inlineSecretRefPattern.FindAllStringSubmatchIndex(value, -1)
	out := value
	// Replace from the end so earlier indexes stay valid.
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		resolved, err := r.resolveSingle(ctx, out[m[2]:m[3]], out[m[4]:m[5]])
		if err != nil {
			return "", err
		}
		out = out[:m[0]] + resolved + out[m[1]:]
	}
	return out, nil
}
