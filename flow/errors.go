package flow

import "errors"

// Resolution taxonomy. These are surfaced to callers so a front end can
// render a precise message, with two deliberate exceptions: invalid
// credentials are generic (never "wrong password" vs "unknown account"),
// and cross-tenant mismatches report ErrUnknownUser so the existence of
// other organizations is never revealed.
var (
	// ErrInvalidCredential is a wrong secret or failed assertion.
	ErrInvalidCredential = errors.New("flow: invalid credential")

	// ErrUnknownUser means the validated email resolves to no usable person.
	ErrUnknownUser = errors.New("flow: unknown user")

	// ErrAmbiguousEmail means two or more local persons share the email.
	ErrAmbiguousEmail = errors.New("flow: ambiguous email")

	// ErrOrganizationExists means the requested organization name is taken.
	ErrOrganizationExists = errors.New("flow: organization exists")

	// ErrInvalidInput is a malformed email, organization name or password
	// payload.
	ErrInvalidInput = errors.New("flow: invalid input")

	// ErrTooManyRequests is the generic rate-limit denial.
	ErrTooManyRequests = errors.New("flow: too many requests")

	// ErrNotFound is returned by stores for absent records.
	ErrNotFound = errors.New("flow: not found")
)
