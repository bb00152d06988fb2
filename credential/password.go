package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// PasswordConfig configures the password validator.
type PasswordConfig struct {
	// Iterations is the PBKDF2 iteration count.
	// Default: 64000
	Iterations int

	// SaltLength is the salt size in bytes.
	// Default: 16
	SaltLength int

	// KeyLength is the derived key size in bytes.
	// Default: 32
	KeyLength int
}

// PasswordValidator verifies passwords against PBKDF2-derived data.
//
// Stored data is self-describing:
//
//	pbkdf2-sha256$<iterations>$<base64url salt>$<base64url hash>
//
// so the iteration count can be raised without invalidating old hashes.
type PasswordValidator struct {
	config PasswordConfig
}

const passwordScheme = "pbkdf2-sha256"

// NewPasswordValidator creates a password validator.
func NewPasswordValidator(config PasswordConfig) *PasswordValidator {
	// Apply defaults
	if config.Iterations <= 0 {
		config.Iterations = 64000
	}
	if config.SaltLength <= 0 {
		config.SaltLength = 16
	}
	if config.KeyLength <= 0 {
		config.KeyLength = 32
	}

	return &PasswordValidator{config: config}
}

// Kind returns KindPassword.
func (v *PasswordValidator) Kind() Kind {
	return KindPassword
}

// Validate checks a password against stored derived data.
// Empty stored data fails: an account provisioned without a password
// cannot be signed into with any password, including an empty one.
func (v *PasswordValidator) Validate(secret, stored []byte) Result {
	if len(secret) == 0 || len(stored) == 0 {
		return Invalid(KindPassword)
	}

	iterations, salt, want, err := parsePasswordData(stored)
	if err != nil {
		return Invalid(KindPassword)
	}

	got := pbkdf2.Key(secret, salt, iterations, len(want), sha256.New)
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return Invalid(KindPassword)
	}

	return Result{Valid: true, Kind: KindPassword, Data: stored}
}

// DeriveData derives fresh verification data with a random salt.
func (v *PasswordValidator) DeriveData(secret []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	salt := make([]byte, v.config.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeriveFailed, err)
	}

	hash := pbkdf2.Key(secret, salt, v.config.Iterations, v.config.KeyLength, sha256.New)

	data := fmt.Sprintf("%s$%d$%s$%s",
		passwordScheme,
		v.config.Iterations,
		base64.RawURLEncoding.EncodeToString(salt),
		base64.RawURLEncoding.EncodeToString(hash),
	)
	return []byte(data), nil
}

// parsePasswordData splits stored data into its parts.
func parsePasswordData(stored []byte) (iterations int, salt, hash []byte, err error) {
	parts := strings.Split(string(stored), "$")
	if len(parts) != 4 || parts[0] != passwordScheme {
		return 0, nil, nil, fmt.Errorf("malformed password data")
	}

	iterations, err = strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return 0, nil, nil, fmt.Errorf("bad iteration count")
	}

	salt, err = base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return 0, nil, nil, fmt.Errorf("decode salt: %w", err)
	}

	hash, err = base64.RawURLEncoding.DecodeString(parts[3])
	if err != nil || len(hash) == 0 {
		return 0, nil, nil, fmt.Errorf("decode hash: %w", err)
	}

	return iterations, salt, hash, nil
}

// Ensure PasswordValidator implements Validator
var _ Validator = (*PasswordValidator)(nil)
