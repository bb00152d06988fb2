package flow

import (
	"context"

	"github.com/google/uuid"

	"github.com/laurelhq/laurel/credential"
)

// Roles assignable to persons.
const (
	RoleEditor = "editor"
	RoleReader = "reader"
)

// Person is the resolver's view of a person record.
type Person struct {
	ID             int
	Name           string
	Email          string
	OrganizationID uuid.UUID
	Roles          []string
}

// Organization is the resolver's view of an organization record.
type Organization struct {
	ID   uuid.UUID
	Name string
}

// Tx supplies the transaction boundary for resolution.
type Tx interface {
	// InTx runs fn inside one transaction: everything fn writes commits
	// together or not at all.
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Directory reads and writes person and organization records.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - FindOrganizationsByName matches the name exactly, case sensitively.
// - Absent single records are reported as ErrNotFound.
type Directory interface {
	FindPeopleByEmail(ctx context.Context, email string) ([]Person, error)
	FindOrganizationsByName(ctx context.Context, name string) ([]Organization, error)
	GetOrganization(ctx context.Context, id uuid.UUID) (*Organization, error)
	CreateOrganization(ctx context.Context, name string) (*Organization, error)
	CreatePerson(ctx context.Context, orgID uuid.UUID, name, email string, roles []string) (*Person, error)

	// GetPerson returns a person by id.
	GetPerson(ctx context.Context, id int) (*Person, error)
}

// CredentialStore reads and writes credential records.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Absent records are reported as ErrNotFound.
type CredentialStore interface {
	// GetCredential returns the person's credential of the given kind.
	GetCredential(ctx context.Context, personID int, kind credential.Kind) (*credential.Credential, error)

	// FindCredentialByUsername returns the credential of the given kind
	// presented under username at sign-in.
	FindCredentialByUsername(ctx context.Context, kind credential.Kind, username string) (*credential.Credential, error)

	// UpsertCredential creates the person's credential of the given kind
	// or updates it in place. At most one credential per (person, kind)
	// ever exists.
	UpsertCredential(ctx context.Context, personID int, kind credential.Kind, username, externalID string, data []byte) (*credential.Credential, error)
}

// Store is the full persistence surface the flows consume. The
// implementations live with the excluded persistence layer; this package
// only ships an in-memory store for tests and embedding.
type Store interface {
	Tx
	Directory
	CredentialStore
}
