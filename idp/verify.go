package idp

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/laurelhq/laurel/credential"
)

// assertionVerifier checks a provider-issued identity assertion against
// the provider's public keys, expected issuer and expected audience.
type assertionVerifier struct {
	keys     KeyProvider
	issuer   string
	audience string
	kind     credential.Kind
	now      func() time.Time
}

// verify returns a valid result only for a well-signed assertion carrying
// a verified email claim. Anything short of that is an invalid result;
// only key-fetch trouble is an error.
func (v *assertionVerifier) verify(ctx context.Context, assertion string) (credential.Result, error) {
	if assertion == "" {
		return credential.Invalid(v.kind), nil
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{
			jwt.SigningMethodRS256.Alg(),
			jwt.SigningMethodRS384.Alg(),
			jwt.SigningMethodRS512.Alg(),
		}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	if v.now != nil {
		opts = append(opts, jwt.WithTimeFunc(v.now))
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(assertion, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return v.keys.GetKey(ctx, kid)
	}, opts...)
	if err != nil {
		if errors.Is(err, ErrProviderUnavailable) {
			return credential.Invalid(v.kind), err
		}
		return credential.Invalid(v.kind), nil
	}
	if !parsed.Valid {
		return credential.Invalid(v.kind), nil
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	verified := emailVerified(claims)

	// An assertion without a verified email cannot drive account linking.
	if sub == "" || email == "" || !verified {
		return credential.Invalid(v.kind), nil
	}

	return credential.Result{
		Valid:      true,
		ExternalID: sub,
		Email:      email,
		Kind:       v.kind,
	}, nil
}

// emailVerified reads the email_verified claim, which providers encode as
// either a boolean or the string "true".
func emailVerified(claims jwt.MapClaims) bool {
	switch v := claims["email_verified"].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}
