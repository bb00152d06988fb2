package idp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/laurelhq/laurel/credential"
)

// AssertionConfig configures an assertion-verifying provider.
type AssertionConfig struct {
	// Name identifies the provider in registries and URLs.
	Name string

	// Kind is the credential kind this provider vouches for.
	Kind credential.Kind

	// AuthorizationEndpoint is where the browser is redirected to. The
	// provider returns the signed assertion directly on the callback.
	AuthorizationEndpoint string

	// JWKSURL is the provider's published key set. Ignored when Keys is set.
	JWKSURL string

	// Issuer is the expected iss claim of assertions.
	Issuer string

	// Audience is the expected aud claim, typically this application's
	// client identifier.
	Audience string

	// Scopes is the space-separated scope request.
	// Default: "openid email"
	Scopes string

	// Keys overrides the key provider, for tests.
	Keys KeyProvider

	// Now overrides the verification clock, for tests.
	Now func() time.Time
}

// AssertionProvider verifies a provider-issued identity assertion carried
// straight through the callback, without a code exchange.
type AssertionProvider struct {
	config   AssertionConfig
	verifier *assertionVerifier
}

// NewAssertionProvider creates an assertion-verifying provider.
func NewAssertionProvider(config AssertionConfig) (*AssertionProvider, error) {
	if config.Name == "" {
		return nil, errors.New("idp: provider name is required")
	}
	if !config.Kind.Valid() {
		return nil, fmt.Errorf("idp: invalid credential kind %q", config.Kind)
	}
	if config.Audience == "" {
		return nil, errors.New("idp: expected audience is required")
	}

	// Apply defaults
	if config.Scopes == "" {
		config.Scopes = "openid email"
	}

	keys := config.Keys
	if keys == nil {
		if config.JWKSURL == "" {
			return nil, errors.New("idp: JWKS URL or key provider is required")
		}
		keys = NewRemoteKeys(RemoteKeysConfig{URL: config.JWKSURL, HTTPClient: &http.Client{Timeout: 30 * time.Second}})
	}

	return &AssertionProvider{
		config: config,
		verifier: &assertionVerifier{
			keys:     keys,
			issuer:   config.Issuer,
			audience: config.Audience,
			kind:     config.Kind,
			now:      config.Now,
		},
	}, nil
}

// Name returns the configured provider name.
func (p *AssertionProvider) Name() string {
	return p.config.Name
}

// Kind returns the credential kind this provider vouches for.
func (p *AssertionProvider) Kind() credential.Kind {
	return p.config.Kind
}

// AuthorizationURL builds the provider redirect carrying state.
func (p *AssertionProvider) AuthorizationURL(state, callbackURI string) (string, error) {
	if p.config.AuthorizationEndpoint == "" {
		return "", errors.New("idp: no authorization endpoint configured")
	}

	u, err := url.Parse(p.config.AuthorizationEndpoint)
	if err != nil {
		return "", fmt.Errorf("idp: parse authorization endpoint: %w", err)
	}

	q := u.Query()
	q.Set("response_type", "id_token")
	q.Set("client_id", p.config.Audience)
	q.Set("redirect_uri", callbackURI)
	q.Set("scope", p.config.Scopes)
	q.Set("state", state)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// HandleCallback verifies code as a signed identity assertion. Any
// verification failure is an invalid result; only key-set fetch trouble
// is reported as ErrProviderUnavailable.
func (p *AssertionProvider) HandleCallback(ctx context.Context, code, _ string) (credential.Result, error) {
	return p.verifier.verify(ctx, code)
}

// Ensure AssertionProvider implements Provider
var _ Provider = (*AssertionProvider)(nil)
