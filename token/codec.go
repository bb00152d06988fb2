package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes. Encoded as the audience claim so the two token families
// cannot be cross-used.
const (
	PurposeSession       = "session"
	PurposeCallbackState = "callback-state"
)

// ErrInvalidToken is returned for any token that fails verification:
// bad signature, wrong issuer, wrong purpose, malformed, or expired.
var ErrInvalidToken = errors.New("token: invalid token")

// Config configures a codec.
type Config struct {
	// Key is the symmetric signing key. Required.
	Key []byte

	// Issuer is the iss claim stamped on issue and required on decode.
	// Default: "laurel"
	Issuer string

	// Purpose is the aud claim distinguishing token families. Required.
	Purpose string

	// TTL is how long issued tokens remain valid.
	// Default: 1 hour
	TTL time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Codec signs and verifies one family of claims with a shared mechanism.
// Encode and Decode are pure functions over the signing key and are safe
// for concurrent use.
type Codec struct {
	config Config
}

// NewCodec creates a codec.
func NewCodec(config Config) (*Codec, error) {
	if len(config.Key) == 0 {
		return nil, errors.New("token: signing key is required")
	}
	if config.Purpose == "" {
		return nil, errors.New("token: purpose is required")
	}

	// Apply defaults
	if config.Issuer == "" {
		config.Issuer = "laurel"
	}
	if config.TTL <= 0 {
		config.TTL = time.Hour
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Codec{config: config}, nil
}

// TTL returns the configured token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.config.TTL
}

// Encode signs claims with the codec's issuer, purpose and expiry.
func (c *Codec) Encode(claims Claims) (string, error) {
	now := c.config.Now()
	claims.stamp(jwt.RegisteredClaims{
		Issuer:    c.config.Issuer,
		Audience:  jwt.ClaimStrings{c.config.Purpose},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.config.TTL)),
	})

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(c.config.Key)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Decode verifies tokenString and fills into with its claims.
// Every verification failure collapses to ErrInvalidToken; decoding never
// trusts unsigned or re-serialized claims.
func (c *Codec) Decode(tokenString string, into Claims) error {
	parsed, err := jwt.ParseWithClaims(tokenString, into,
		func(t *jwt.Token) (any, error) { return c.config.Key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithIssuer(c.config.Issuer),
		jwt.WithAudience(c.config.Purpose),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.config.Now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}

// NewSessionCodec creates the codec issuing session tokens.
func NewSessionCodec(key []byte, ttl time.Duration) (*Codec, error) {
	return NewCodec(Config{Key: key, Purpose: PurposeSession, TTL: ttl})
}

// NewCallbackCodec creates the codec issuing callback-state tokens.
// State tokens only need to outlive one redirect round trip.
func NewCallbackCodec(key []byte, ttl time.Duration) (*Codec, error) {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return NewCodec(Config{Key: key, Purpose: PurposeCallbackState, TTL: ttl})
}
