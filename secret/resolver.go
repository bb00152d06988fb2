package secret

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Provider resolves secret references of one scheme, such as process
// environment variables or an external secret store.
//
// Implementations must be safe for concurrent use and must never log
// resolved values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}

// Resolver turns configured secret values into usable secret material.
//
// A value of the form "secretref:<provider>:<ref>" is handed to the named
// provider; any other value is returned after strict environment
// expansion. The env provider is always installed, so
// "secretref:env:SESSION_SIGNING_KEY" works without setup.
type Resolver struct {
	providers map[string]Provider
}

// NewResolver creates a resolver with the env provider plus any extras.
func NewResolver(providers ...Provider) *Resolver {
	r := &Resolver{providers: map[string]Provider{}}
	r.Register(NewEnvProvider())
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register installs a provider, replacing any with the same name.
func (r *Resolver) Register(provider Provider) {
	if r == nil || provider == nil {
		return
	}
	if r.providers == nil {
		r.providers = map[string]Provider{}
	}
	r.providers[provider.Name()] = provider
}

// ResolveValue resolves a configured value to its secret material. A nil
// resolver still performs environment expansion, so callers holding an
// optional resolver need no nil check.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}

	providerName, ref, ok := parseRef(expanded)
	if !ok {
		return expanded, nil
	}
	if r == nil {
		return "", fmt.Errorf("secret: no resolver for reference %q", expanded)
	}

	provider, found := r.providers[providerName]
	if !found {
		return "", fmt.Errorf("secret: unknown provider %q", providerName)
	}
	resolved, err := provider.Resolve(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("secret: resolve %s ref: %w", providerName, err)
	}
	if resolved == "" {
		return "", fmt.Errorf("secret: provider %q resolved an empty value", providerName)
	}
	return resolved, nil
}

// ResolveKey resolves a configured signing key to key bytes. An empty key
// is an error: a token signed with an empty key is forgeable.
func (r *Resolver) ResolveKey(ctx context.Context, value string) ([]byte, error) {
	resolved, err := r.ResolveValue(ctx, value)
	if err != nil {
		return nil, err
	}
	if resolved == "" {
		return nil, errors.New("secret: signing key is empty")
	}
	return []byte(resolved), nil
}

// parseRef splits a "secretref:<provider>:<ref>" value. Anything else,
// including a ref with a missing part, is not a reference.
func parseRef(value string) (provider, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, "secretref:")
	if !found {
		return "", "", false
	}
	provider, ref, found = strings.Cut(rest, ":")
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}
