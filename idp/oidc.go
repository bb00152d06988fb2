package idp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/laurelhq/laurel/credential"
)

// OIDCConfig configures a code-exchange provider.
type OIDCConfig struct {
	// Name identifies the provider in registries and URLs.
	Name string

	// Kind is the credential kind this provider vouches for.
	Kind credential.Kind

	// AuthorizationEndpoint is where the browser is redirected to.
	AuthorizationEndpoint string

	// TokenEndpoint is where the authorization code is exchanged.
	TokenEndpoint string

	// JWKSURL is the provider's published key set, used to verify the
	// ID token returned by the exchange. Ignored when Keys is set.
	JWKSURL string

	// Issuer is the expected iss claim of returned ID tokens.
	Issuer string

	// ClientID is this application's client identifier; also the
	// expected ID token audience.
	ClientID string

	// ClientSecret authenticates the code exchange.
	ClientSecret string

	// Scopes is the space-separated scope request.
	// Default: "openid email"
	Scopes string

	// Timeout is the HTTP timeout for the code exchange.
	// Default: 10 seconds
	Timeout time.Duration

	// HTTPClient overrides the exchange client. If nil, a default
	// client with Timeout is used.
	HTTPClient *http.Client

	// Keys overrides the key provider, for tests.
	Keys KeyProvider
}

// OIDCProvider exchanges an authorization code for an identity at the
// provider's token endpoint and verifies the returned ID token locally.
type OIDCProvider struct {
	config     OIDCConfig
	httpClient *http.Client
	verifier   *assertionVerifier
}

// NewOIDCProvider creates a code-exchange provider.
func NewOIDCProvider(config OIDCConfig) (*OIDCProvider, error) {
	if config.Name == "" {
		return nil, errors.New("idp: provider name is required")
	}
	if !config.Kind.Valid() {
		return nil, fmt.Errorf("idp: invalid credential kind %q", config.Kind)
	}
	if config.TokenEndpoint == "" || config.AuthorizationEndpoint == "" {
		return nil, errors.New("idp: authorization and token endpoints are required")
	}

	// Apply defaults
	if config.Scopes == "" {
		config.Scopes = "openid email"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	keys := config.Keys
	if keys == nil {
		if config.JWKSURL == "" {
			return nil, errors.New("idp: JWKS URL or key provider is required")
		}
		keys = NewRemoteKeys(RemoteKeysConfig{URL: config.JWKSURL, HTTPClient: httpClient})
	}

	return &OIDCProvider{
		config:     config,
		httpClient: httpClient,
		verifier: &assertionVerifier{
			keys:     keys,
			issuer:   config.Issuer,
			audience: config.ClientID,
			kind:     config.Kind,
		},
	}, nil
}

// Name returns the configured provider name.
func (p *OIDCProvider) Name() string {
	return p.config.Name
}

// Kind returns the credential kind this provider vouches for.
func (p *OIDCProvider) Kind() credential.Kind {
	return p.config.Kind
}

// AuthorizationURL builds the provider redirect carrying state.
func (p *OIDCProvider) AuthorizationURL(state, callbackURI string) (string, error) {
	u, err := url.Parse(p.config.AuthorizationEndpoint)
	if err != nil {
		return "", fmt.Errorf("idp: parse authorization endpoint: %w", err)
	}

	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", p.config.ClientID)
	q.Set("redirect_uri", callbackURI)
	q.Set("scope", p.config.Scopes)
	q.Set("state", state)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// HandleCallback exchanges code at the token endpoint and verifies the
// returned ID token. Exchange transport failures are ErrProviderUnavailable;
// a response without a verifiable identity is an invalid result.
func (p *OIDCProvider) HandleCallback(ctx context.Context, code, callbackURI string) (credential.Result, error) {
	idToken, err := p.exchange(ctx, code, callbackURI)
	if err != nil {
		return credential.Invalid(p.config.Kind), err
	}
	if idToken == "" {
		return credential.Invalid(p.config.Kind), nil
	}

	return p.verifier.verify(ctx, idToken)
}

// tokenResponse is the token endpoint response, reduced to what we use.
type tokenResponse struct {
	IDToken string `json:"id_token"`
}

func (p *OIDCProvider) exchange(ctx context.Context, code, callbackURI string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", callbackURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("idp: create exchange request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	basic := base64.StdEncoding.EncodeToString([]byte(p.config.ClientID + ":" + p.config.ClientSecret))
	req.Header.Set("Authorization", "Basic "+basic)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// 4xx means the provider rejected the code: not retryable, handled by
	// the caller as an invalid result. Anything else odd is transient.
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrProviderUnavailable, err)
	}

	return tr.IDToken, nil
}

// Ensure OIDCProvider implements Provider
var _ Provider = (*OIDCProvider)(nil)
