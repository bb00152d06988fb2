package auth

import (
	"time"

	"github.com/laurelhq/laurel/credential"
)

// Principal represents an authenticated person.
type Principal struct {
	// PersonID is the person's identifier.
	PersonID int

	// CredentialID is the credential the session was established with.
	CredentialID string

	// Name is the person's display name.
	Name string

	// Roles are the roles assigned to this person.
	Roles []string

	// OrganizationID is the person's organization (multi-tenancy).
	OrganizationID string

	// KindUsed is the credential kind that authenticated this request.
	// Callers branch on it, e.g. to force a password change after a
	// one-time password was used.
	KindUsed credential.Kind

	// ExpiresAt is when this principal's session expires.
	ExpiresAt time.Time

	// IssuedAt is when this principal's session was created.
	IssuedAt time.Time
}

// HasRole checks if the principal has a specific role.
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsExpired checks if the principal's session has expired.
func (p *Principal) IsExpired() bool {
	if p.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(p.ExpiresAt)
}
