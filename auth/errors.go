package auth

import "errors"

// Sentinel errors for authentication. Expired, malformed and revoked
// credentials all surface as ErrInvalidCredentials: the boundary never
// tells a caller which part of a credential was wrong.
var (
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)
