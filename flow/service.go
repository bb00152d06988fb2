package flow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/laurelhq/laurel/credential"
	"github.com/laurelhq/laurel/idp"
	"github.com/laurelhq/laurel/observe"
	"github.com/laurelhq/laurel/token"
)

// ServiceConfig configures a Service.
type ServiceConfig struct {
	// Providers holds the configured identity providers. Required.
	Providers idp.Registry

	// States encodes and decodes callback-state tokens. Required.
	States *token.Codec

	// Resolver turns verified identities into sessions. Required.
	Resolver *Resolver

	// CallbackBaseURL is the externally visible prefix under which the
	// per-provider callback endpoints are mounted, without a trailing
	// slash. Required.
	CallbackBaseURL string

	// Logger is optional.
	Logger observe.Logger

	// Metrics is optional.
	Metrics observe.AuthMetrics
}

// Service drives the two redirect legs of external sign-in and sign-up.
// It is transport agnostic: callers hand it the provider name, the state
// token and the authorization code from the callback request, and get a
// redirect URL or a resolved Session back.
type Service struct {
	providers idp.Registry
	states    *token.Codec
	resolver  *Resolver
	baseURL   string
	logger    observe.Logger
	metrics   observe.AuthMetrics
}

// NewService creates a flow service.
func NewService(config ServiceConfig) (*Service, error) {
	if config.Providers == nil {
		return nil, fmt.Errorf("flow: provider registry is required")
	}
	if config.States == nil {
		return nil, fmt.Errorf("flow: state codec is required")
	}
	if config.Resolver == nil {
		return nil, fmt.Errorf("flow: resolver is required")
	}
	if config.CallbackBaseURL == "" {
		return nil, fmt.Errorf("flow: callback base URL is required")
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Metrics == nil {
		config.Metrics = observe.NopAuthMetrics()
	}

	return &Service{
		providers: config.Providers,
		states:    config.States,
		resolver:  config.Resolver,
		baseURL:   strings.TrimSuffix(config.CallbackBaseURL, "/"),
		logger:    config.Logger,
		metrics:   config.Metrics,
	}, nil
}

// SignUpRequest describes the intent carried into a sign-up flow. At most
// one of OrganizationName (create a new organization) and OrganizationID
// (join an existing one) may be set; with neither, the flow completes an
// invited person.
type SignUpRequest struct {
	Provider         string
	OrganizationName string
	OrganizationID   string
	Email            string
}

// BeginSignIn returns the provider authorization URL for a sign-in
// attempt, with an empty-intent state token for callback validation.
func (s *Service) BeginSignIn(ctx context.Context, providerName string) (string, error) {
	provider, err := s.providers.Lookup(providerName)
	if err != nil {
		return "", err
	}

	state, err := s.states.Encode(&token.CallbackClaims{})
	if err != nil {
		return "", err
	}

	return provider.AuthorizationURL(state, s.callbackURI(providerName, "signin-callback"))
}

// BeginSignUp returns the provider authorization URL for a sign-up
// attempt. The request's intent travels inside the signed state token and
// comes back on the callback leg tamper-proof.
func (s *Service) BeginSignUp(ctx context.Context, req SignUpRequest) (string, error) {
	if req.OrganizationName != "" && req.OrganizationID != "" {
		return "", fmt.Errorf("%w: organization name and id are mutually exclusive", ErrInvalidInput)
	}

	provider, err := s.providers.Lookup(req.Provider)
	if err != nil {
		return "", err
	}

	state, err := s.states.Encode(&token.CallbackClaims{
		OrganizationName: req.OrganizationName,
		OrganizationID:   req.OrganizationID,
		Email:            req.Email,
	})
	if err != nil {
		return "", err
	}

	return provider.AuthorizationURL(state, s.callbackURI(req.Provider, "signup-callback"))
}

// CompleteSignIn handles the provider callback of a sign-in attempt. A
// bad or expired state token is ErrInvalidInput; a failed identity
// verification is ErrInvalidCredential; an unreachable provider keeps its
// retryable idp.ErrProviderUnavailable.
func (s *Service) CompleteSignIn(ctx context.Context, providerName, state, code string) (*Session, error) {
	start := time.Now()
	session, err := s.completeSignIn(ctx, providerName, state, code)
	s.metrics.RecordAttempt(ctx, "callback", providerName, time.Since(start), err)
	return session, err
}

func (s *Service) completeSignIn(ctx context.Context, providerName, state, code string) (*Session, error) {
	provider, err := s.providers.Lookup(providerName)
	if err != nil {
		return nil, err
	}
	if _, err := s.decodeState(state); err != nil {
		return nil, err
	}

	result, err := s.handleCallback(ctx, provider, code, s.callbackURI(providerName, "signin-callback"))
	if err != nil {
		return nil, err
	}

	return s.resolver.SignIn(ctx, result)
}

// CompleteSignUp handles the provider callback of a sign-up attempt,
// dispatching on the intent the state token carried out on the first leg.
func (s *Service) CompleteSignUp(ctx context.Context, providerName, state, code string) (*Session, error) {
	start := time.Now()
	session, err := s.completeSignUp(ctx, providerName, state, code)
	s.metrics.RecordAttempt(ctx, "callback", providerName, time.Since(start), err)
	return session, err
}

func (s *Service) completeSignUp(ctx context.Context, providerName, state, code string) (*Session, error) {
	provider, err := s.providers.Lookup(providerName)
	if err != nil {
		return nil, err
	}
	claims, err := s.decodeState(state)
	if err != nil {
		return nil, err
	}

	result, err := s.handleCallback(ctx, provider, code, s.callbackURI(providerName, "signup-callback"))
	if err != nil {
		return nil, err
	}

	return s.resolver.SignUp(ctx, claims, result)
}

func (s *Service) decodeState(state string) (*token.CallbackClaims, error) {
	var claims token.CallbackClaims
	if err := s.states.Decode(state, &claims); err != nil {
		return nil, fmt.Errorf("%w: bad state token", ErrInvalidInput)
	}
	return &claims, nil
}

func (s *Service) handleCallback(ctx context.Context, provider idp.Provider, code, callbackURI string) (credential.Result, error) {
	result, err := provider.HandleCallback(ctx, code, callbackURI)
	if err != nil {
		s.logger.Warn(ctx, "provider callback failed",
			observe.F("provider", provider.Name()),
			observe.F("error", err.Error()))
		return credential.Result{}, err
	}
	return result, nil
}

func (s *Service) callbackURI(providerName, leg string) string {
	return s.baseURL + "/" + providerName + "/" + leg
}
