package secret

import (
	"context"
	"fmt"
	"strings"
)

// Resolver resolves key values through registered providers.
type Resolver struct {
	providers map[string]Provider
	strict    bool
}

// NewResolver creates a resolver. A strict resolver rejects references
// that resolve to an empty string.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{
		providers: make(map[string]Provider),
		strict:    strict,
	}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Default returns a strict resolver with the env and file providers.
func Default() *Resolver {
	return NewResolver(true, EnvProvider{}, FileProvider{})
}

// Register registers a provider with the resolver.
func (r *Resolver) Register(provider Provider) {
	if r == nil || provider == nil {
		return
	}
	if r.providers == nil {
		r.providers = make(map[string]Provider)
	}
	r.providers[provider.Name()] = provider
}

// ResolveValue expands value and resolves it if it is a reference to a
// registered provider. Empty values stay empty.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(strings.TrimSpace(value))
	if err != nil {
		return "", err
	}
	if r == nil || expanded == "" {
		return expanded, nil
	}

	name, ref, ok := ParseRef(expanded)
	if !ok {
		return expanded, nil
	}
	provider, registered := r.providers[name]
	if !registered {
		return expanded, nil
	}

	resolved, err := provider.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	resolved = strings.TrimSpace(resolved)
	if r.strict && resolved == "" {
		return "", fmt.Errorf("%w from %s provider", ErrEmptySecret, name)
	}
	return resolved, nil
}

// ResolveMap resolves each value in input. Errors name the key, never the value.
func (r *Resolver) ResolveMap(ctx context.Context, input map[string]string) (map[string]string, error) {
	if input == nil {
		return nil, nil
	}
	out := make(map[string]string, len(input))
	for k, v := range input {
		resolved, err := r.ResolveValue(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}

// ParseRef splits a reference of the form <provider>:<ref>.
func ParseRef(value string) (provider string, ref string, ok bool) {
	provider, ref, found := strings.Cut(value, ":")
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}
