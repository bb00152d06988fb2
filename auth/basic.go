package auth

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/laurelhq/laurel/credential"
	"github.com/laurelhq/laurel/observe"
)

// StoredCredential is a credential record joined with the person details
// needed to build a principal.
type StoredCredential struct {
	// Credential is the stored credential.
	Credential credential.Credential

	// PersonName is the person's display name.
	PersonName string

	// Roles are the person's roles.
	Roles []string

	// OrganizationID is the person's organization.
	OrganizationID string
}

// CredentialStore looks up stored credentials for Basic authentication.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Lookup returns (nil, nil) when no credential matches.
type CredentialStore interface {
	Lookup(ctx context.Context, kind credential.Kind, username string) (*StoredCredential, error)
}

// BasicConfig configures the basic authenticator.
type BasicConfig struct {
	// HeaderName is the header containing the credentials.
	// Default: "Authorization"
	HeaderName string

	// Validators supplies the secret validators.
	// Defaults to credential.DefaultRegistry().
	Validators *credential.Registry

	// Metrics is optional.
	Metrics observe.AuthMetrics
}

// BasicAuthenticator validates HTTP Basic credentials against stored
// secrets. It tries the password credential first, then the one-time
// password, and marks Principal.KindUsed with whichever matched.
type BasicAuthenticator struct {
	config     BasicConfig
	store      CredentialStore
	validators *credential.Registry
	metrics    observe.AuthMetrics
}

// NewBasicAuthenticator creates a basic authenticator.
func NewBasicAuthenticator(config BasicConfig, store CredentialStore) *BasicAuthenticator {
	if config.HeaderName == "" {
		config.HeaderName = "Authorization"
	}
	validators := config.Validators
	if validators == nil {
		validators = credential.DefaultRegistry()
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = observe.NopAuthMetrics()
	}

	return &BasicAuthenticator{
		config:     config,
		store:      store,
		validators: validators,
		metrics:    metrics,
	}
}

// Name returns "basic".
func (a *BasicAuthenticator) Name() string {
	return "basic"
}

// Supports returns true if the request carries Basic credentials.
func (a *BasicAuthenticator) Supports(_ context.Context, req *AuthRequest) bool {
	return strings.HasPrefix(req.GetHeader(a.config.HeaderName), "Basic ")
}

// Authenticate decodes the Basic header and validates the secret against
// the stored password, then the stored one-time password.
func (a *BasicAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	start := time.Now()
	result, err := a.authenticate(ctx, req)
	if err != nil {
		a.metrics.RecordAttempt(ctx, "basic", "", time.Since(start), err)
		return nil, err
	}
	var kind string
	if result.Principal != nil {
		kind = string(result.Principal.KindUsed)
	}
	a.metrics.RecordAttempt(ctx, "basic", kind, time.Since(start), result.Error)
	return result, nil
}

func (a *BasicAuthenticator) authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	username, secret, ok := a.decodeHeader(req.GetHeader(a.config.HeaderName))
	if !ok {
		return AuthFailure(ErrMissingCredentials, "basic"), nil
	}

	for _, kind := range []credential.Kind{credential.KindPassword, credential.KindOneTimePassword} {
		stored, err := a.store.Lookup(ctx, kind, username)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			continue
		}

		validator, err := a.validators.Lookup(kind)
		if err != nil {
			return nil, err
		}
		if !validator.Validate([]byte(secret), stored.Credential.Data).Valid {
			continue
		}

		return AuthSuccess(&Principal{
			PersonID:       stored.Credential.PersonID,
			CredentialID:   stored.Credential.ID.String(),
			Name:           stored.PersonName,
			Roles:          stored.Roles,
			OrganizationID: stored.OrganizationID,
			KindUsed:       kind,
		}, "basic"), nil
	}

	return AuthFailure(ErrInvalidCredentials, "basic"), nil
}

func (a *BasicAuthenticator) decodeHeader(header string) (username, secret string, ok bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", false
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header[len(prefix):]))
	if err != nil {
		return "", "", false
	}
	username, secret, ok = strings.Cut(string(raw), ":")
	if !ok || username == "" {
		return "", "", false
	}
	return username, secret, true
}

// Ensure BasicAuthenticator implements Authenticator
var _ Authenticator = (*BasicAuthenticator)(nil)
