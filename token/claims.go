package token

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims is implemented by the claim shapes this package can encode.
type Claims interface {
	jwt.Claims

	// stamp installs the registered claims computed by the codec.
	// Keeping it unexported closes the set of encodable shapes.
	stamp(registered jwt.RegisteredClaims)
}

// SessionClaims identifies an authenticated principal. The subject carries
// the person's display name.
type SessionClaims struct {
	jwt.RegisteredClaims

	// PersonID is the authenticated person.
	PersonID int `json:"pid"`

	// CredentialID is the credential used to establish the session.
	CredentialID string `json:"cid"`

	// CredentialKind is the kind of that credential. Downstream logic
	// branches on it, e.g. to force a password change after a one-time
	// password was used.
	CredentialKind string `json:"ckind,omitempty"`

	// Roles are the person's roles.
	Roles []string `json:"roles,omitempty"`

	// OrganizationID is the person's organization.
	OrganizationID string `json:"org,omitempty"`
}

func (c *SessionClaims) stamp(registered jwt.RegisteredClaims) {
	// The subject (display name) belongs to the caller; the codec owns the rest.
	c.Issuer = registered.Issuer
	c.Audience = registered.Audience
	c.IssuedAt = registered.IssuedAt
	c.ExpiresAt = registered.ExpiresAt
}

// CallbackClaims carries signup intent across the external-provider
// redirect as the opaque state parameter. It is not a session credential.
type CallbackClaims struct {
	jwt.RegisteredClaims

	// OrganizationID is the target organization for an
	// existing-organization signup.
	OrganizationID string `json:"org,omitempty"`

	// OrganizationName is the requested name for a new-organization signup.
	OrganizationName string `json:"org_name,omitempty"`

	// Email is an optional hint supplied when the flow started.
	Email string `json:"email,omitempty"`
}

func (c *CallbackClaims) stamp(registered jwt.RegisteredClaims) {
	c.Issuer = registered.Issuer
	c.Audience = registered.Audience
	c.IssuedAt = registered.IssuedAt
	c.ExpiresAt = registered.ExpiresAt
}
