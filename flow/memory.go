package flow

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/laurelhq/laurel/credential"
)

type credKey struct {
	personID int
	kind     credential.Kind
}

// MemoryStore is an in-memory Store for tests and embedding. Transactions
// are serialized: InTx snapshots the state, runs fn under the store lock
// and restores the snapshot when fn fails. InTx must not be nested.
type MemoryStore struct {
	mu           sync.Mutex
	nextPersonID int
	people       map[int]Person
	orgs         map[uuid.UUID]Organization
	creds        map[credKey]credential.Credential
	now          func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextPersonID: 1,
		people:       make(map[int]Person),
		orgs:         make(map[uuid.UUID]Organization),
		creds:        make(map[credKey]credential.Credential),
		now:          time.Now,
	}
}

type txMarker struct{}

// lock takes the store lock unless ctx is already inside a transaction,
// which holds it for its whole extent.
func (s *MemoryStore) lock(ctx context.Context) func() {
	if ctx.Value(txMarker{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	people, orgs, creds, nextID := s.snapshotLocked()
	if err := fn(context.WithValue(ctx, txMarker{}, struct{}{})); err != nil {
		s.people, s.orgs, s.creds, s.nextPersonID = people, orgs, creds, nextID
		return err
	}
	return nil
}

func (s *MemoryStore) snapshotLocked() (map[int]Person, map[uuid.UUID]Organization, map[credKey]credential.Credential, int) {
	people := make(map[int]Person, len(s.people))
	for k, v := range s.people {
		people[k] = v
	}
	orgs := make(map[uuid.UUID]Organization, len(s.orgs))
	for k, v := range s.orgs {
		orgs[k] = v
	}
	creds := make(map[credKey]credential.Credential, len(s.creds))
	for k, v := range s.creds {
		creds[k] = v
	}
	return people, orgs, creds, s.nextPersonID
}

func (s *MemoryStore) FindPeopleByEmail(ctx context.Context, email string) ([]Person, error) {
	defer s.lock(ctx)()

	var out []Person
	for _, p := range s.people {
		if p.Email == email {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) FindOrganizationsByName(ctx context.Context, name string) ([]Organization, error) {
	defer s.lock(ctx)()

	var out []Organization
	for _, o := range s.orgs {
		if o.Name == name {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetOrganization(ctx context.Context, id uuid.UUID) (*Organization, error) {
	defer s.lock(ctx)()

	o, ok := s.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (s *MemoryStore) CreateOrganization(ctx context.Context, name string) (*Organization, error) {
	defer s.lock(ctx)()

	o := Organization{ID: uuid.New(), Name: name}
	s.orgs[o.ID] = o
	return &o, nil
}

func (s *MemoryStore) CreatePerson(ctx context.Context, orgID uuid.UUID, name, email string, roles []string) (*Person, error) {
	defer s.lock(ctx)()

	p := Person{
		ID:             s.nextPersonID,
		Name:           name,
		Email:          email,
		OrganizationID: orgID,
		Roles:          append([]string(nil), roles...),
	}
	s.nextPersonID++
	s.people[p.ID] = p
	return &p, nil
}

func (s *MemoryStore) GetPerson(ctx context.Context, id int) (*Person, error) {
	defer s.lock(ctx)()

	p, ok := s.people[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) GetCredential(ctx context.Context, personID int, kind credential.Kind) (*credential.Credential, error) {
	defer s.lock(ctx)()

	c, ok := s.creds[credKey{personID, kind}]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) FindCredentialByUsername(ctx context.Context, kind credential.Kind, username string) (*credential.Credential, error) {
	defer s.lock(ctx)()

	for _, c := range s.creds {
		if c.Kind == kind && c.Username == username {
			out := c
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpsertCredential(ctx context.Context, personID int, kind credential.Kind, username, externalID string, data []byte) (*credential.Credential, error) {
	defer s.lock(ctx)()

	key := credKey{personID, kind}
	c, ok := s.creds[key]
	switch {
	case !ok:
		c = credential.Credential{
			ID:        uuid.New(),
			PersonID:  personID,
			Kind:      kind,
			CreatedAt: s.now(),
		}
	case !bytes.Equal(c.Data, data):
		// A data change is a rotation.
		c.CreatedAt = s.now()
	}
	c.Username = username
	c.ExternalID = externalID
	c.Data = append([]byte(nil), data...)
	s.creds[key] = c
	return &c, nil
}

// Organizations returns the number of stored organizations.
func (s *MemoryStore) Organizations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orgs)
}

// People returns the number of stored people.
func (s *MemoryStore) People() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.people)
}

// Credentials returns the number of stored credentials.
func (s *MemoryStore) Credentials() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.creds)
}

var _ Store = (*MemoryStore)(nil)
