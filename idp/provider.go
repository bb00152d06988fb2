package idp

import (
	"context"
	"errors"

	"github.com/laurelhq/laurel/credential"
)

// Sentinel errors for provider integration.
var (
	// ErrProviderUnavailable marks a transient failure talking to the
	// provider (network, timeout, unexpected status). Retryable.
	ErrProviderUnavailable = errors.New("idp: provider unavailable")

	// ErrKeyNotFound means the provider's key set has no matching key.
	ErrKeyNotFound = errors.New("idp: signing key not found")

	// ErrUnknownProvider means no provider is registered under that name.
	ErrUnknownProvider = errors.New("idp: unknown provider")
)

// Provider is an external identity provider adapter.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - HandleCallback returns (invalid result, nil) for a bad or unverifiable
//   assertion and a non-nil error only for transient provider trouble.
type Provider interface {
	// Name returns a unique identifier for this provider.
	Name() string

	// Kind returns the credential kind this provider vouches for.
	Kind() credential.Kind

	// AuthorizationURL returns the provider URL to redirect the browser to,
	// carrying state as the opaque state parameter.
	AuthorizationURL(state, callbackURI string) (string, error)

	// HandleCallback exchanges the callback code or assertion for a
	// verified external identity.
	HandleCallback(ctx context.Context, code, callbackURI string) (credential.Result, error)
}

// Registry maps provider names to providers.
type Registry map[string]Provider

// NewRegistry creates a registry from providers, keyed by name.
func NewRegistry(providers ...Provider) Registry {
	r := make(Registry, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		r[p.Name()] = p
	}
	return r
}

// Lookup returns the provider registered under name.
func (r Registry) Lookup(name string) (Provider, error) {
	p, ok := r[name]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}
