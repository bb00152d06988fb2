package idp

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/laurelhq/laurel/credential"
)

// testKey is a shared RSA key for assertion signing.
var testKey, _ = rsa.GenerateKey(rand.Reader, 2048)

// signAssertion signs an ID-token-shaped assertion with testKey.
func signAssertion(t *testing.T, kid string, claims jwt.MapClaims) string {
	t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid

	signed, err := tok.SignedString(testKey)
	if err != nil {
		t.Fatalf("sign assertion: %v", err)
	}
	return signed
}

// validClaims returns a complete assertion claim set.
func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":            "https://issuer.test",
		"aud":            "client-1",
		"sub":            "ext-user-42",
		"email":          "a@acme.test",
		"email_verified": true,
		"exp":            time.Now().Add(time.Hour).Unix(),
		"iat":            time.Now().Unix(),
	}
}

func testKeys() StaticKeys {
	return StaticKeys{"kid-1": &testKey.PublicKey}
}

func newTestAssertionProvider(t *testing.T) *AssertionProvider {
	t.Helper()

	p, err := NewAssertionProvider(AssertionConfig{
		Name:     "test",
		Kind:     credential.KindGoogle,
		Issuer:   "https://issuer.test",
		Audience: "client-1",
		Keys:     testKeys(),
	})
	if err != nil {
		t.Fatalf("NewAssertionProvider() error = %v", err)
	}
	return p
}

func TestAssertionProvider_HandleCallback_Valid(t *testing.T) {
	p := newTestAssertionProvider(t)

	assertion := signAssertion(t, "kid-1", validClaims())
	result, err := p.HandleCallback(context.Background(), assertion, "")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}

	if !result.Valid {
		t.Fatalf("HandleCallback() result invalid, want valid")
	}
	if result.ExternalID != "ext-user-42" {
		t.Errorf("ExternalID = %q, want ext-user-42", result.ExternalID)
	}
	if result.Email != "a@acme.test" {
		t.Errorf("Email = %q, want a@acme.test", result.Email)
	}
	if result.Kind != credential.KindGoogle {
		t.Errorf("Kind = %v, want %v", result.Kind, credential.KindGoogle)
	}
}

func TestAssertionProvider_HandleCallback_Invalid(t *testing.T) {
	p := newTestAssertionProvider(t)

	otherKey, _ := rsa.GenerateKey(rand.Reader, 2048)

	tests := []struct {
		name      string
		assertion func(t *testing.T) string
	}{
		{
			name:      "empty assertion",
			assertion: func(t *testing.T) string { return "" },
		},
		{
			name:      "garbage assertion",
			assertion: func(t *testing.T) string { return "not.a.jwt" },
		},
		{
			name: "wrong audience",
			assertion: func(t *testing.T) string {
				claims := validClaims()
				claims["aud"] = "someone-else"
				return signAssertion(t, "kid-1", claims)
			},
		},
		{
			name: "wrong issuer",
			assertion: func(t *testing.T) string {
				claims := validClaims()
				claims["iss"] = "https://evil.test"
				return signAssertion(t, "kid-1", claims)
			},
		},
		{
			name: "expired",
			assertion: func(t *testing.T) string {
				claims := validClaims()
				claims["exp"] = time.Now().Add(-time.Hour).Unix()
				return signAssertion(t, "kid-1", claims)
			},
		},
		{
			name: "missing email",
			assertion: func(t *testing.T) string {
				claims := validClaims()
				delete(claims, "email")
				return signAssertion(t, "kid-1", claims)
			},
		},
		{
			name: "unverified email",
			assertion: func(t *testing.T) string {
				claims := validClaims()
				claims["email_verified"] = false
				return signAssertion(t, "kid-1", claims)
			},
		},
		{
			name: "signed by the wrong key",
			assertion: func(t *testing.T) string {
				tok := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims())
				tok.Header["kid"] = "kid-1"
				signed, err := tok.SignedString(otherKey)
				if err != nil {
					t.Fatalf("sign: %v", err)
				}
				return signed
			},
		},
		{
			name: "symmetric algorithm smuggling",
			assertion: func(t *testing.T) string {
				tok := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims())
				tok.Header["kid"] = "kid-1"
				signed, err := tok.SignedString([]byte("guessable"))
				if err != nil {
					t.Fatalf("sign: %v", err)
				}
				return signed
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := p.HandleCallback(context.Background(), tt.assertion(t), "")
			if err != nil {
				t.Fatalf("HandleCallback() error = %v, want invalid result without error", err)
			}
			if result.Valid {
				t.Errorf("HandleCallback() result valid, want invalid")
			}
		})
	}
}

func TestAssertionProvider_HandleCallback_KeysUnavailable(t *testing.T) {
	// Point the key provider at a server that is already gone.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	p, err := NewAssertionProvider(AssertionConfig{
		Name:     "test",
		Kind:     credential.KindGoogle,
		Issuer:   "https://issuer.test",
		Audience: "client-1",
		JWKSURL:  serverURL,
	})
	if err != nil {
		t.Fatalf("NewAssertionProvider() error = %v", err)
	}

	assertion := signAssertion(t, "kid-1", validClaims())
	_, err = p.HandleCallback(context.Background(), assertion, "")
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("HandleCallback() error = %v, want ErrProviderUnavailable", err)
	}
}

func TestOIDCProvider_AuthorizationURL(t *testing.T) {
	p, err := NewOIDCProvider(OIDCConfig{
		Name:                  "test",
		Kind:                  credential.KindGoogle,
		AuthorizationEndpoint: "https://provider.test/authorize",
		TokenEndpoint:         "https://provider.test/token",
		Issuer:                "https://issuer.test",
		ClientID:              "client-1",
		Keys:                  testKeys(),
	})
	if err != nil {
		t.Fatalf("NewOIDCProvider() error = %v", err)
	}

	raw, err := p.AuthorizationURL("opaque-state", "https://app.test/callback")
	if err != nil {
		t.Fatalf("AuthorizationURL() error = %v", err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse URL: %v", err)
	}

	q := u.Query()
	want := map[string]string{
		"response_type": "code",
		"client_id":     "client-1",
		"redirect_uri":  "https://app.test/callback",
		"scope":         "openid email",
		"state":         "opaque-state",
	}
	for key, value := range want {
		if got := q.Get(key); got != value {
			t.Errorf("query %s = %q, want %q", key, got, value)
		}
	}
}

func newExchangeServer(t *testing.T, status int, body any) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %q, want authorization_code", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func TestOIDCProvider_HandleCallback(t *testing.T) {
	assertion := signAssertion(t, "kid-1", validClaims())

	t.Run("successful exchange", func(t *testing.T) {
		server := newExchangeServer(t, http.StatusOK, map[string]string{"id_token": assertion})
		defer server.Close()

		p, err := NewOIDCProvider(OIDCConfig{
			Name:                  "test",
			Kind:                  credential.KindGoogle,
			AuthorizationEndpoint: "https://provider.test/authorize",
			TokenEndpoint:         server.URL,
			Issuer:                "https://issuer.test",
			ClientID:              "client-1",
			Keys:                  testKeys(),
		})
		if err != nil {
			t.Fatalf("NewOIDCProvider() error = %v", err)
		}

		result, err := p.HandleCallback(context.Background(), "auth-code", "https://app.test/callback")
		if err != nil {
			t.Fatalf("HandleCallback() error = %v", err)
		}
		if !result.Valid {
			t.Fatalf("HandleCallback() result invalid, want valid")
		}
		if result.Email != "a@acme.test" {
			t.Errorf("Email = %q, want a@acme.test", result.Email)
		}
	})

	t.Run("provider rejects the code", func(t *testing.T) {
		server := newExchangeServer(t, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		defer server.Close()

		p, _ := NewOIDCProvider(OIDCConfig{
			Name:                  "test",
			Kind:                  credential.KindGoogle,
			AuthorizationEndpoint: "https://provider.test/authorize",
			TokenEndpoint:         server.URL,
			ClientID:              "client-1",
			Keys:                  testKeys(),
		})

		result, err := p.HandleCallback(context.Background(), "bad-code", "https://app.test/callback")
		if err != nil {
			t.Fatalf("HandleCallback() error = %v, want invalid result without error", err)
		}
		if result.Valid {
			t.Errorf("HandleCallback() result valid, want invalid")
		}
	})

	t.Run("provider down", func(t *testing.T) {
		server := newExchangeServer(t, http.StatusOK, nil)
		serverURL := server.URL
		server.Close()

		p, _ := NewOIDCProvider(OIDCConfig{
			Name:                  "test",
			Kind:                  credential.KindGoogle,
			AuthorizationEndpoint: "https://provider.test/authorize",
			TokenEndpoint:         serverURL,
			ClientID:              "client-1",
			Keys:                  testKeys(),
		})

		_, err := p.HandleCallback(context.Background(), "auth-code", "https://app.test/callback")
		if !errors.Is(err, ErrProviderUnavailable) {
			t.Errorf("HandleCallback() error = %v, want ErrProviderUnavailable", err)
		}
	})

	t.Run("provider errors out", func(t *testing.T) {
		server := newExchangeServer(t, http.StatusInternalServerError, map[string]string{})
		defer server.Close()

		p, _ := NewOIDCProvider(OIDCConfig{
			Name:                  "test",
			Kind:                  credential.KindGoogle,
			AuthorizationEndpoint: "https://provider.test/authorize",
			TokenEndpoint:         server.URL,
			ClientID:              "client-1",
			Keys:                  testKeys(),
		})

		_, err := p.HandleCallback(context.Background(), "auth-code", "https://app.test/callback")
		if !errors.Is(err, ErrProviderUnavailable) {
			t.Errorf("HandleCallback() error = %v, want ErrProviderUnavailable", err)
		}
	})
}

func TestRemoteKeys_GetKey(t *testing.T) {
	publicKey := &testKey.PublicKey
	fetches := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]any{{
				"kty": "RSA",
				"kid": "kid-1",
				"use": "sig",
				"alg": "RS256",
				"n":   base64.RawURLEncoding.EncodeToString(publicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(publicKey.E)).Bytes()),
			}},
		})
	}))
	defer server.Close()

	keys := NewRemoteKeys(RemoteKeysConfig{URL: server.URL, CacheTTL: time.Hour})

	got, err := keys.GetKey(context.Background(), "kid-1")
	if err != nil {
		t.Fatalf("GetKey() error = %v", err)
	}
	rsaKey, ok := got.(*rsa.PublicKey)
	if !ok {
		t.Fatalf("GetKey() returned %T, want *rsa.PublicKey", got)
	}
	if rsaKey.N.Cmp(publicKey.N) != 0 {
		t.Errorf("key modulus does not match")
	}

	// Second lookup is served from cache.
	if _, err := keys.GetKey(context.Background(), "kid-1"); err != nil {
		t.Fatalf("GetKey() error = %v", err)
	}
	if fetches != 1 {
		t.Errorf("fetches = %d, want 1 (second lookup should hit the cache)", fetches)
	}

	// Unknown kid forces a refresh and then reports not found.
	if _, err := keys.GetKey(context.Background(), "nonexistent"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("GetKey(nonexistent) error = %v, want ErrKeyNotFound", err)
	}
	if fetches != 2 {
		t.Errorf("fetches = %d, want 2 (unknown kid should refresh once)", fetches)
	}
}

func TestRegistry_Lookup(t *testing.T) {
	p := newTestAssertionProvider(t)
	r := NewRegistry(p)

	got, err := r.Lookup("test")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got.Name() != "test" {
		t.Errorf("Name() = %q, want test", got.Name())
	}

	if _, err := r.Lookup("missing"); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Lookup(missing) error = %v, want ErrUnknownProvider", err)
	}
}

func TestGoogle_Preset(t *testing.T) {
	p, err := Google("client-1", "secret")
	if err != nil {
		t.Fatalf("Google() error = %v", err)
	}
	if p.Name() != "google" {
		t.Errorf("Name() = %q, want google", p.Name())
	}
	if p.Kind() != credential.KindGoogle {
		t.Errorf("Kind() = %v, want %v", p.Kind(), credential.KindGoogle)
	}

	raw, err := p.AuthorizationURL("state", "https://app.test/callback")
	if err != nil {
		t.Fatalf("AuthorizationURL() error = %v", err)
	}
	u, _ := url.Parse(raw)
	if u.Host != "accounts.google.com" {
		t.Errorf("host = %q, want accounts.google.com", u.Host)
	}
}
