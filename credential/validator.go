package credential

import "errors"

// Sentinel errors for secret validation.
var (
	ErrUnknownKind  = errors.New("credential: unknown kind")
	ErrEmptySecret  = errors.New("credential: empty secret")
	ErrDeriveFailed = errors.New("credential: could not derive data")
)

// Validator checks presented secrets for one credential kind.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Validate never returns "valid" for empty or absent stored data.
// - Validate is deterministic and compares in constant time where feasible.
type Validator interface {
	// Kind returns the credential kind this validator handles.
	Kind() Kind

	// Validate checks secret against previously stored credential data.
	Validate(secret, stored []byte) Result

	// DeriveData produces new verification data for secret, suitable for
	// storing in a Credential. For key-derivation based validators this
	// includes a fresh random salt on every call.
	DeriveData(secret []byte) ([]byte, error)
}
