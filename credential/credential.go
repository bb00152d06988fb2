package credential

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies how a credential is verified.
type Kind string

const (
	// KindPassword is a locally stored password hash.
	KindPassword Kind = "password"

	// KindOneTimePassword is a single-use secret issued for password resets.
	KindOneTimePassword Kind = "onetime_password"

	// KindGoogle is an identity verified by Google.
	KindGoogle Kind = "google"

	// KindEmail is an identity asserted through an emailed link.
	KindEmail Kind = "email"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindPassword, KindOneTimePassword, KindGoogle, KindEmail:
		return true
	}
	return false
}

// External reports whether the kind is verified by an external provider
// rather than against locally stored secret data.
func (k Kind) External() bool {
	return k == KindGoogle || k == KindEmail
}

// Credential is a stored proof of identity belonging to exactly one person.
//
// A person holds at most one active credential per kind. For KindPassword
// the Data field holds derived hash material, or is empty when the account
// was provisioned without a password; empty data is a valid state distinct
// from the credential not existing, and validation against it always fails.
type Credential struct {
	// ID uniquely identifies this credential.
	ID uuid.UUID

	// PersonID is the owning person.
	PersonID int

	// Kind is the credential kind.
	Kind Kind

	// Username is the identifier presented at sign-in. For external kinds
	// this is the provider-issued user id; for one-time passwords it is
	// the generated secret's digest key.
	Username string

	// ExternalID is the provider-issued user identifier, empty for local kinds.
	ExternalID string

	// Data is the stored verification material. Empty for external kinds.
	Data []byte

	// CreatedAt is when the credential was created or last rotated.
	CreatedAt time.Time
}

// Result is the outcome of validating a secret or an external assertion.
// It is transient: consumed immediately by the resolver, never persisted.
type Result struct {
	// Valid is true if the secret or assertion checked out.
	Valid bool

	// ExternalID is the provider-issued user id, if any.
	ExternalID string

	// Email is the verified email address, if any.
	Email string

	// Kind is the credential kind that produced this result.
	Kind Kind

	// Data is the credential data to persist when linking.
	Data []byte
}

// Invalid returns a failed result for the given kind.
func Invalid(kind Kind) Result {
	return Result{Valid: false, Kind: kind}
}
