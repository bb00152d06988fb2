package auth

import (
	"context"
	"strings"
	"time"

	"github.com/laurelhq/laurel/credential"
	"github.com/laurelhq/laurel/observe"
	"github.com/laurelhq/laurel/token"
)

// BearerConfig configures the bearer authenticator.
type BearerConfig struct {
	// HeaderName is the header containing the token.
	// Default: "Authorization"
	HeaderName string

	// TokenPrefix is the prefix before the token in the header.
	// Default: "Bearer "
	TokenPrefix string

	// Metrics is optional.
	Metrics observe.AuthMetrics
}

// BearerAuthenticator validates session tokens. Any decode failure, wrong
// signature, bad purpose or expiry alike, is the same unauthenticated
// result.
type BearerAuthenticator struct {
	config  BearerConfig
	codec   *token.Codec
	metrics observe.AuthMetrics
}

// NewBearerAuthenticator creates a bearer authenticator around a session
// token codec.
func NewBearerAuthenticator(config BearerConfig, codec *token.Codec) *BearerAuthenticator {
	if config.HeaderName == "" {
		config.HeaderName = "Authorization"
	}
	if config.TokenPrefix == "" {
		config.TokenPrefix = "Bearer "
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = observe.NopAuthMetrics()
	}

	return &BearerAuthenticator{
		config:  config,
		codec:   codec,
		metrics: metrics,
	}
}

// Name returns "bearer".
func (a *BearerAuthenticator) Name() string {
	return "bearer"
}

// Supports returns true if the request carries a bearer token.
func (a *BearerAuthenticator) Supports(_ context.Context, req *AuthRequest) bool {
	return strings.HasPrefix(req.GetHeader(a.config.HeaderName), a.config.TokenPrefix)
}

// Authenticate decodes the session token and rebuilds the principal.
func (a *BearerAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	start := time.Now()
	result := a.authenticate(req)
	var kind string
	if result.Principal != nil {
		kind = string(result.Principal.KindUsed)
	}
	a.metrics.RecordAttempt(ctx, "bearer", kind, time.Since(start), result.Error)
	return result, nil
}

func (a *BearerAuthenticator) authenticate(req *AuthRequest) *AuthResult {
	header := req.GetHeader(a.config.HeaderName)
	if header == "" {
		return AuthFailure(ErrMissingCredentials, "bearer")
	}

	tokenString := strings.TrimPrefix(header, a.config.TokenPrefix)
	if tokenString == header {
		return AuthFailure(ErrMissingCredentials, "bearer")
	}
	tokenString = strings.TrimSpace(tokenString)

	var claims token.SessionClaims
	if err := a.codec.Decode(tokenString, &claims); err != nil {
		return AuthFailure(ErrInvalidCredentials, "bearer")
	}

	principal := &Principal{
		PersonID:       claims.PersonID,
		CredentialID:   claims.CredentialID,
		Name:           claims.Subject,
		Roles:          claims.Roles,
		OrganizationID: claims.OrganizationID,
		KindUsed:       credential.Kind(claims.CredentialKind),
	}
	if claims.ExpiresAt != nil {
		principal.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		principal.IssuedAt = claims.IssuedAt.Time
	}

	return AuthSuccess(principal, "bearer")
}

// Ensure BearerAuthenticator implements Authenticator
var _ Authenticator = (*BearerAuthenticator)(nil)
