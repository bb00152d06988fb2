package idp

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// KeyProvider retrieves provider public keys for assertion verification.
type KeyProvider interface {
	// GetKey returns the key for the given key ID.
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeys is a KeyProvider backed by a fixed key map, for tests and
// providers that publish pinned keys.
type StaticKeys map[string]*rsa.PublicKey

// GetKey returns the key for keyID, or the only key if keyID is empty.
func (s StaticKeys) GetKey(_ context.Context, keyID string) (any, error) {
	if keyID == "" && len(s) == 1 {
		for _, key := range s {
			return key, nil
		}
	}
	key, ok := s[keyID]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

// RemoteKeysConfig configures a RemoteKeys provider.
type RemoteKeysConfig struct {
	// URL is the provider's JWKS endpoint.
	URL string

	// CacheTTL is how long fetched keys stay fresh.
	// Default: 1 hour
	CacheTTL time.Duration

	// HTTPClient is the client for key fetches.
	// If nil, a default client with a 30s timeout is used.
	HTTPClient *http.Client
}

// RemoteKeys fetches and caches a provider's published signing keys.
// Refreshes are deduplicated across concurrent callers, and the last
// successful fetch is kept as a fallback when the endpoint is down.
type RemoteKeys struct {
	config RemoteKeysConfig

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
	fallback  map[string]*rsa.PublicKey
	sfGroup   singleflight.Group
}

// NewRemoteKeys creates a remote key provider.
func NewRemoteKeys(config RemoteKeysConfig) *RemoteKeys {
	// Apply defaults
	if config.CacheTTL == 0 {
		config.CacheTTL = time.Hour
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &RemoteKeys{
		config:   config,
		keys:     make(map[string]*rsa.PublicKey),
		fallback: make(map[string]*rsa.PublicKey),
	}
}

// GetKey returns the key for keyID, refreshing the cache when stale.
// If keyID is empty and exactly one key is cached, that key is returned.
func (p *RemoteKeys) GetKey(ctx context.Context, keyID string) (any, error) {
	p.mu.RLock()
	fresh := time.Since(p.fetchedAt) < p.config.CacheTTL
	if fresh {
		key := p.lookupLocked(p.keys, keyID)
		p.mu.RUnlock()
		if key != nil {
			return key, nil
		}
		// Unknown kid may mean the provider rotated keys; refresh.
	} else {
		p.mu.RUnlock()
	}

	_, err, _ := p.sfGroup.Do("refresh", func() (any, error) {
		return nil, p.refresh(ctx)
	})
	if err != nil {
		// Degrade to the last successful fetch rather than failing a
		// verification that an older key could still serve.
		p.mu.RLock()
		key := p.lookupLocked(p.keys, keyID)
		if key == nil {
			key = p.lookupLocked(p.fallback, keyID)
		}
		p.mu.RUnlock()

		if key != nil {
			return key, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	p.mu.RLock()
	key := p.lookupLocked(p.keys, keyID)
	p.mu.RUnlock()

	if key == nil {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

// lookupLocked finds a key by ID. Caller must hold at least RLock.
func (p *RemoteKeys) lookupLocked(keys map[string]*rsa.PublicKey, keyID string) *rsa.PublicKey {
	if keyID == "" {
		if len(keys) == 1 {
			for _, key := range keys {
				return key
			}
		}
		return nil
	}
	return keys[keyID]
}

// refresh fetches the key set from the JWKS endpoint.
func (p *RemoteKeys) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.URL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := p.config.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch keys: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("decode keys: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey)
	for _, jwk := range doc.Keys {
		if jwk.Kty != "RSA" {
			continue
		}
		pubKey, err := parseRSAPublicKey(jwk)
		if err != nil {
			continue // skip invalid entries, the rest may be fine
		}
		keys[jwk.Kid] = pubKey
	}

	p.mu.Lock()
	p.keys = keys
	p.fetchedAt = time.Now()
	for kid, key := range keys {
		p.fallback[kid] = key
	}
	p.mu.Unlock()

	return nil
}

// jwksDocument is the JWKS endpoint response format.
type jwksDocument struct {
	Keys []jwkKey `json:"keys"`
}

type jwkKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// parseRSAPublicKey converts a JWK entry to an RSA public key.
func parseRSAPublicKey(jwk jwkKey) (*rsa.PublicKey, error) {
	if jwk.N == "" || jwk.E == "" {
		return nil, fmt.Errorf("incomplete key parameters")
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("decode n: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("decode e: %w", err)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}

// Ensure both providers implement KeyProvider
var (
	_ KeyProvider = (StaticKeys)(nil)
	_ KeyProvider = (*RemoteKeys)(nil)
)
