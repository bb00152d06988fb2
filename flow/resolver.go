package flow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/laurelhq/laurel/credential"
	"github.com/laurelhq/laurel/observe"
	"github.com/laurelhq/laurel/token"
)

// Session is the outcome of a successful resolution: a signed session
// token plus the person and credential it references.
type Session struct {
	Token      string
	Person     Person
	Credential credential.Credential
}

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	// Store is the persistence surface. Required.
	Store Store

	// Sessions issues session tokens. Required.
	Sessions *token.Codec

	// Logger is optional.
	Logger observe.Logger
}

// Resolver maps a verified identity to a local person and organization
// and decides the outcome of every sign-in/sign-up combination. The
// branches form a closed decision table over the state-token shape and
// the email lookup result; each is unit-testable without HTTP or a real
// database.
type Resolver struct {
	store    Store
	sessions *token.Codec
	logger   observe.Logger
}

// NewResolver creates a resolver.
func NewResolver(config ResolverConfig) (*Resolver, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("flow: store is required")
	}
	if config.Sessions == nil {
		return nil, fmt.Errorf("flow: session codec is required")
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}

	return &Resolver{
		store:    config.Store,
		sessions: config.Sessions,
		logger:   config.Logger,
	}, nil
}

// SignIn resolves a verified identity to an existing person and links the
// presented credential. It never creates persons or organizations: an
// unknown email is ErrUnknownUser, not an implicit signup.
func (r *Resolver) SignIn(ctx context.Context, result credential.Result) (*Session, error) {
	if !result.Valid {
		return nil, ErrInvalidCredential
	}
	if result.Email == "" {
		return nil, ErrInvalidInput
	}

	var session *Session
	err := r.store.InTx(ctx, func(ctx context.Context) error {
		person, err := r.singlePersonByEmail(ctx, result.Email)
		if err != nil {
			return err
		}

		s, err := r.linkAndMint(ctx, *person, result)
		if err != nil {
			return err
		}
		session = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info(ctx, "sign-in resolved",
		observe.F("person_id", session.Person.ID),
		observe.F("kind", string(result.Kind)))
	return session, nil
}

// SignUp resolves a sign-up callback according to the intent carried by
// the decoded state token. Everything it creates is written inside one
// transaction: a failed branch leaves no rows behind.
func (r *Resolver) SignUp(ctx context.Context, state *token.CallbackClaims, result credential.Result) (*Session, error) {
	if !result.Valid {
		return nil, ErrInvalidCredential
	}
	if result.Email == "" {
		return nil, ErrInvalidInput
	}

	var session *Session
	err := r.store.InTx(ctx, func(ctx context.Context) error {
		var s *Session
		var err error

		switch {
		case state != nil && state.OrganizationName != "":
			s, err = r.signUpNewOrganization(ctx, state.OrganizationName, result)
		case state != nil && state.OrganizationID != "":
			s, err = r.signUpExistingOrganization(ctx, state.OrganizationID, result)
		default:
			// Bare signup: completes a pre-provisioned (invited) person.
			s, err = r.signUpInvited(ctx, result)
		}
		if err != nil {
			return err
		}
		session = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info(ctx, "sign-up resolved",
		observe.F("person_id", session.Person.ID),
		observe.F("organization_id", session.Person.OrganizationID.String()),
		observe.F("kind", string(result.Kind)))
	return session, nil
}

// signUpNewOrganization creates an organization, its first person (an
// editor named after the email local part) and the credential.
func (r *Resolver) signUpNewOrganization(ctx context.Context, name string, result credential.Result) (*Session, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: organization name is empty", ErrInvalidInput)
	}

	existing, err := r.store.FindOrganizationsByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrOrganizationExists, name)
	}

	org, err := r.store.CreateOrganization(ctx, name)
	if err != nil {
		return nil, err
	}

	displayName, _, _ := strings.Cut(result.Email, "@")
	person, err := r.store.CreatePerson(ctx, org.ID, displayName, result.Email, []string{RoleEditor})
	if err != nil {
		return nil, err
	}

	return r.linkAndMint(ctx, *person, result)
}

// signUpExistingOrganization links a credential for a person who already
// belongs to the target organization. A person registered elsewhere is
// reported as unknown so the attempt reveals nothing about other tenants.
func (r *Resolver) signUpExistingOrganization(ctx context.Context, orgID string, result credential.Result) (*Session, error) {
	id, err := uuid.Parse(orgID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad organization id", ErrInvalidInput)
	}

	org, err := r.store.GetOrganization(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, err
	}

	person, err := r.singlePersonByEmail(ctx, result.Email)
	if err != nil {
		return nil, err
	}
	if person.OrganizationID != org.ID {
		return nil, ErrUnknownUser
	}

	return r.linkAndMint(ctx, *person, result)
}

// signUpInvited completes the invited-by-email flow: the person record
// already exists, only the credential is new.
func (r *Resolver) signUpInvited(ctx context.Context, result credential.Result) (*Session, error) {
	person, err := r.singlePersonByEmail(ctx, result.Email)
	if err != nil {
		return nil, err
	}
	return r.linkAndMint(ctx, *person, result)
}

// singlePersonByEmail returns the one person with the email, or the
// taxonomy error for zero or several.
func (r *Resolver) singlePersonByEmail(ctx context.Context, email string) (*Person, error) {
	people, err := r.store.FindPeopleByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	switch len(people) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, email)
	case 1:
		return &people[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousEmail, email)
	}
}

// linkAndMint links the verified credential to person and mints a session
// token. Linking is idempotent per (person, kind) when the stored data
// already matches; otherwise the credential is updated in place, never
// duplicated.
func (r *Resolver) linkAndMint(ctx context.Context, person Person, result credential.Result) (*Session, error) {
	cred, err := r.store.GetCredential(ctx, person.ID, result.Kind)
	switch {
	case err == nil && bytes.Equal(cred.Data, result.Data) && cred.ExternalID == result.ExternalID:
		// Already linked with identical data: nothing to write.
	case err == nil || errors.Is(err, ErrNotFound):
		username := result.ExternalID
		if username == "" {
			username = person.Email
		}
		cred, err = r.store.UpsertCredential(ctx, person.ID, result.Kind, username, result.ExternalID, result.Data)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return r.mintSession(person, *cred)
}

// mintSession signs a session token for person established via cred.
func (r *Resolver) mintSession(person Person, cred credential.Credential) (*Session, error) {
	claims := &token.SessionClaims{
		PersonID:       person.ID,
		CredentialID:   cred.ID.String(),
		CredentialKind: string(cred.Kind),
		Roles:          person.Roles,
		OrganizationID: person.OrganizationID.String(),
	}
	claims.Subject = person.Name

	signed, err := r.sessions.Encode(claims)
	if err != nil {
		return nil, err
	}

	return &Session{Token: signed, Person: person, Credential: cred}, nil
}
