package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/laurelhq/laurel/credential"
	"github.com/laurelhq/laurel/observe"
	"github.com/laurelhq/laurel/ratelimit"
	"github.com/laurelhq/laurel/token"
)

// MailSender delivers the set-password link. Delivery transport is out of
// scope here; implementations live with the caller.
type MailSender interface {
	SendSetPasswordLink(ctx context.Context, email, link string) error
}

// PasswordFlowConfig configures a PasswordFlow.
type PasswordFlowConfig struct {
	// Store is the persistence surface. Required.
	Store Store

	// Validators supplies the password and one-time-password validators.
	// Defaults to credential.DefaultRegistry().
	Validators *credential.Registry

	// Sessions issues session tokens. Required.
	Sessions *token.Codec

	// Links limits RequestSetPasswordLink per caller key. Defaults to one
	// request per minute per key.
	Links *ratelimit.Keyed

	// Mail delivers set-password links. Required for
	// RequestSetPasswordLink.
	Mail MailSender

	// LinkBaseURL is the front-end URL the set-password link points into.
	LinkBaseURL string

	// Logger is optional.
	Logger observe.Logger
}

// PasswordFlow sets and resets passwords.
type PasswordFlow struct {
	store      Store
	validators *credential.Registry
	sessions   *token.Codec
	links      *ratelimit.Keyed
	mail       MailSender
	linkBase   string
	logger     observe.Logger
}

// NewPasswordFlow creates a password flow.
func NewPasswordFlow(config PasswordFlowConfig) (*PasswordFlow, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("flow: store is required")
	}
	if config.Sessions == nil {
		return nil, fmt.Errorf("flow: session codec is required")
	}
	if config.Validators == nil {
		config.Validators = credential.DefaultRegistry()
	}
	if config.Links == nil {
		config.Links = ratelimit.New(ratelimit.Config{PerMinute: 1, Burst: 1})
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}

	return &PasswordFlow{
		store:      config.Store,
		validators: config.Validators,
		sessions:   config.Sessions,
		links:      config.Links,
		mail:       config.Mail,
		linkBase:   config.LinkBaseURL,
		logger:     config.Logger,
	}, nil
}

// PasswordChange is a set-password request from an authenticated caller.
// KindUsed is the credential kind the caller's session was established
// with; after a one-time-password sign-in the current password is not
// required.
type PasswordChange struct {
	PersonID int
	KindUsed credential.Kind
	Current  string
	New      string
	Confirm  string
}

// SetPassword sets or changes the caller's password and returns a fresh
// session bound to the password credential. When a password is already
// set, the current one must validate first, unless the session came from
// a one-time password; the one-time password stops working afterwards.
func (f *PasswordFlow) SetPassword(ctx context.Context, change PasswordChange) (*Session, error) {
	if change.New == "" || change.New != change.Confirm {
		return nil, fmt.Errorf("%w: new password missing or confirmation mismatch", ErrInvalidInput)
	}

	passwordValidator, err := f.validators.Lookup(credential.KindPassword)
	if err != nil {
		return nil, err
	}

	var session *Session
	err = f.store.InTx(ctx, func(ctx context.Context) error {
		person, err := f.store.GetPerson(ctx, change.PersonID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrUnknownUser
			}
			return err
		}

		existing, err := f.store.GetCredential(ctx, person.ID, credential.KindPassword)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}

		// A password is only required to change when one is actually set.
		// Empty credential data means the person was provisioned without
		// choosing a password yet.
		hasPassword := existing != nil && len(existing.Data) > 0
		if hasPassword && change.KindUsed != credential.KindOneTimePassword {
			result := passwordValidator.Validate([]byte(change.Current), existing.Data)
			if !result.Valid {
				return ErrInvalidCredential
			}
		}

		data, err := passwordValidator.DeriveData([]byte(change.New))
		if err != nil {
			return err
		}

		cred, err := f.store.UpsertCredential(ctx, person.ID, credential.KindPassword, person.Email, "", data)
		if err != nil {
			return err
		}

		if change.KindUsed == credential.KindOneTimePassword {
			// Blank the one-time password so it is single use. Empty data
			// never validates.
			if _, err := f.store.UpsertCredential(ctx, person.ID, credential.KindOneTimePassword, person.Email, "", nil); err != nil {
				return err
			}
		}

		claims := &token.SessionClaims{
			PersonID:       person.ID,
			CredentialID:   cred.ID.String(),
			CredentialKind: string(credential.KindPassword),
			Roles:          person.Roles,
			OrganizationID: person.OrganizationID.String(),
		}
		claims.Subject = person.Name

		signed, err := f.sessions.Encode(claims)
		if err != nil {
			return err
		}
		session = &Session{Token: signed, Person: *person, Credential: *cred}
		return nil
	})
	if err != nil {
		return nil, err
	}

	f.logger.Info(ctx, "password set", observe.F("person_id", session.Person.ID))
	return session, nil
}

// RequestSetPasswordLink creates a one-time password for the person with
// the given email and hands the resulting link to the mail sender. It is
// rate limited per key and silent about unknown or ambiguous emails so it
// cannot be used to enumerate accounts.
func (f *PasswordFlow) RequestSetPasswordLink(ctx context.Context, email, key string) error {
	if f.mail == nil {
		return fmt.Errorf("flow: mail sender is required")
	}
	if email == "" {
		return fmt.Errorf("%w: email is empty", ErrInvalidInput)
	}
	if !f.links.Allow(key) {
		return ErrTooManyRequests
	}

	var link, to string
	err := f.store.InTx(ctx, func(ctx context.Context) error {
		people, err := f.store.FindPeopleByEmail(ctx, email)
		if err != nil {
			return err
		}
		if len(people) != 1 {
			f.logger.Debug(ctx, "set-password link skipped",
				observe.F("matches", len(people)))
			return nil
		}
		person := people[0]

		plaintext, data, err := credential.GenerateOneTimePassword()
		if err != nil {
			return err
		}
		if _, err := f.store.UpsertCredential(ctx, person.ID, credential.KindOneTimePassword, person.Email, "", data); err != nil {
			return err
		}

		to = person.Email
		link = f.linkBase + "#set-password/" + plaintext
		return nil
	})
	if err != nil {
		return err
	}
	if link == "" {
		return nil
	}

	// Delivery happens after commit. A stale one-time password from a
	// failed send is harmless and overwritten by the next request.
	if err := f.mail.SendSetPasswordLink(ctx, to, link); err != nil {
		f.logger.Error(ctx, "set-password link delivery failed",
			observe.F("error", err.Error()))
		return err
	}

	f.logger.Info(ctx, "set-password link sent", observe.F("person_email", to))
	return nil
}
