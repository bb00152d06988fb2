package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/laurelhq/laurel/credential"
)

// memoryCredentialStore is a test CredentialStore keyed by (kind, username).
type memoryCredentialStore struct {
	creds map[credential.Kind]map[string]*StoredCredential
	err   error
}

func newMemoryCredentialStore() *memoryCredentialStore {
	return &memoryCredentialStore{creds: make(map[credential.Kind]map[string]*StoredCredential)}
}

func (s *memoryCredentialStore) add(kind credential.Kind, username string, data []byte) *StoredCredential {
	stored := &StoredCredential{
		Credential: credential.Credential{
			ID:       uuid.New(),
			PersonID: 7,
			Kind:     kind,
			Username: username,
			Data:     data,
		},
		PersonName:     "alice",
		Roles:          []string{"editor"},
		OrganizationID: uuid.NewString(),
	}
	if s.creds[kind] == nil {
		s.creds[kind] = make(map[string]*StoredCredential)
	}
	s.creds[kind][username] = stored
	return stored
}

func (s *memoryCredentialStore) Lookup(_ context.Context, kind credential.Kind, username string) (*StoredCredential, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.creds[kind][username], nil
}

func basicRequest(username, secret string) *AuthRequest {
	encoded := base64.StdEncoding.EncodeToString([]byte(username + ":" + secret))
	return &AuthRequest{Headers: map[string][]string{
		"Authorization": {"Basic " + encoded},
	}}
}

func derivePassword(t *testing.T, plaintext string) []byte {
	t.Helper()
	data, err := credential.NewPasswordValidator(credential.PasswordConfig{}).DeriveData([]byte(plaintext))
	if err != nil {
		t.Fatalf("DeriveData() error = %v", err)
	}
	return data
}

func TestBasicAuthenticatePassword(t *testing.T) {
	store := newMemoryCredentialStore()
	stored := store.add(credential.KindPassword, "alice@acme.test", derivePassword(t, "correct horse"))
	authenticator := NewBasicAuthenticator(BasicConfig{}, store)

	result, err := authenticator.Authenticate(context.Background(), basicRequest("alice@acme.test", "correct horse"))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !result.Authenticated {
		t.Fatalf("Authenticate() failed: %v", result.Error)
	}

	p := result.Principal
	if p.PersonID != 7 {
		t.Errorf("PersonID = %d, want 7", p.PersonID)
	}
	if p.KindUsed != credential.KindPassword {
		t.Errorf("KindUsed = %v, want password", p.KindUsed)
	}
	if p.CredentialID != stored.Credential.ID.String() {
		t.Errorf("CredentialID = %q, want %q", p.CredentialID, stored.Credential.ID.String())
	}
	if p.Name != "alice" {
		t.Errorf("Name = %q, want alice", p.Name)
	}
}

func TestBasicAuthenticateOneTimePassword(t *testing.T) {
	otp, data, err := credential.GenerateOneTimePassword()
	if err != nil {
		t.Fatalf("GenerateOneTimePassword() error = %v", err)
	}
	store := newMemoryCredentialStore()
	store.add(credential.KindOneTimePassword, "alice@acme.test", data)
	authenticator := NewBasicAuthenticator(BasicConfig{}, store)

	result, err := authenticator.Authenticate(context.Background(), basicRequest("alice@acme.test", otp))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !result.Authenticated {
		t.Fatalf("Authenticate() failed: %v", result.Error)
	}
	if result.Principal.KindUsed != credential.KindOneTimePassword {
		t.Errorf("KindUsed = %v, want onetime", result.Principal.KindUsed)
	}
}

func TestBasicPrefersPassword(t *testing.T) {
	// With both kinds stored, a matching password wins and KindUsed says so.
	_, otpData, err := credential.GenerateOneTimePassword()
	if err != nil {
		t.Fatalf("GenerateOneTimePassword() error = %v", err)
	}
	store := newMemoryCredentialStore()
	store.add(credential.KindPassword, "alice@acme.test", derivePassword(t, "correct horse"))
	store.add(credential.KindOneTimePassword, "alice@acme.test", otpData)
	authenticator := NewBasicAuthenticator(BasicConfig{}, store)

	result, err := authenticator.Authenticate(context.Background(), basicRequest("alice@acme.test", "correct horse"))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !result.Authenticated || result.Principal.KindUsed != credential.KindPassword {
		t.Errorf("result = %+v, want password principal", result)
	}
}

func TestBasicRejects(t *testing.T) {
	store := newMemoryCredentialStore()
	store.add(credential.KindPassword, "alice@acme.test", derivePassword(t, "correct horse"))
	// An invite-provisioned person with no password chosen yet.
	store.add(credential.KindPassword, "bob@acme.test", nil)
	authenticator := NewBasicAuthenticator(BasicConfig{}, store)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     *AuthRequest
		wantErr error
	}{
		{"wrong password", basicRequest("alice@acme.test", "incorrect"), ErrInvalidCredentials},
		{"unknown user", basicRequest("ghost@acme.test", "whatever"), ErrInvalidCredentials},
		{"empty stored data", basicRequest("bob@acme.test", ""), ErrInvalidCredentials},
		{"no header", &AuthRequest{}, ErrMissingCredentials},
		{"not base64", &AuthRequest{Headers: map[string][]string{
			"Authorization": {"Basic %%%"},
		}}, ErrMissingCredentials},
		{"no colon", &AuthRequest{Headers: map[string][]string{
			"Authorization": {"Basic " + base64.StdEncoding.EncodeToString([]byte("alice"))},
		}}, ErrMissingCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := authenticator.Authenticate(ctx, tt.req)
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if result.Authenticated {
				t.Fatal("Authenticate() succeeded, want failure")
			}
			if !errors.Is(result.Error, tt.wantErr) {
				t.Errorf("result.Error = %v, want %v", result.Error, tt.wantErr)
			}
		})
	}
}

func TestBasicStoreErrorIsInternal(t *testing.T) {
	store := newMemoryCredentialStore()
	store.err = errors.New("connection refused")
	authenticator := NewBasicAuthenticator(BasicConfig{}, store)

	_, err := authenticator.Authenticate(context.Background(), basicRequest("alice@acme.test", "pw"))
	if err == nil {
		t.Fatal("Authenticate() expected internal error")
	}
}

func TestBasicSupports(t *testing.T) {
	authenticator := NewBasicAuthenticator(BasicConfig{}, newMemoryCredentialStore())
	ctx := context.Background()

	if !authenticator.Supports(ctx, basicRequest("a", "b")) {
		t.Error("Supports(basic) = false")
	}
	if authenticator.Supports(ctx, bearerRequest("x")) {
		t.Error("Supports(bearer) = true")
	}
}
