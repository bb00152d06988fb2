package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"fmt"
	"strings"
)

// OneTimePasswordValidator verifies single-use secrets issued for the
// set-password flow. The plaintext secret is handed to the person out of
// band; only its SHA-256 digest is stored.
type OneTimePasswordValidator struct{}

// NewOneTimePasswordValidator creates a one-time password validator.
func NewOneTimePasswordValidator() *OneTimePasswordValidator {
	return &OneTimePasswordValidator{}
}

// Kind returns KindOneTimePassword.
func (v *OneTimePasswordValidator) Kind() Kind {
	return KindOneTimePassword
}

// Validate checks a presented one-time password against its stored digest.
func (v *OneTimePasswordValidator) Validate(secret, stored []byte) Result {
	if len(secret) == 0 || len(stored) == 0 {
		return Invalid(KindOneTimePassword)
	}

	digest := sha256.Sum256(secret)
	if subtle.ConstantTimeCompare(digest[:], stored) != 1 {
		return Invalid(KindOneTimePassword)
	}

	return Result{Valid: true, Kind: KindOneTimePassword, Data: stored}
}

// DeriveData returns the storable digest of secret.
func (v *OneTimePasswordValidator) DeriveData(secret []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	digest := sha256.Sum256(secret)
	return digest[:], nil
}

// GenerateOneTimePassword returns a fresh random one-time password and the
// digest to store for it. The plaintext is base32, lowercase, without
// padding, so it survives being pasted from an email.
func GenerateOneTimePassword() (plaintext string, data []byte, err error) {
	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrDeriveFailed, err)
	}

	plaintext = strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw))
	digest := sha256.Sum256([]byte(plaintext))
	return plaintext, digest[:], nil
}

// Ensure OneTimePasswordValidator implements Validator
var _ Validator = (*OneTimePasswordValidator)(nil)
