package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/laurelhq/laurel/secret"
	"github.com/laurelhq/laurel/token"
)

// AuthenticatorFactory creates an authenticator from configuration.
type AuthenticatorFactory func(cfg map[string]any) (Authenticator, error)

// Registry manages authenticator factories.
type Registry struct {
	mu             sync.RWMutex
	authenticators map[string]AuthenticatorFactory
}

// NewRegistry creates a new auth registry.
func NewRegistry() *Registry {
	return &Registry{
		authenticators: make(map[string]AuthenticatorFactory),
	}
}

// RegisterAuthenticator adds an authenticator factory.
func (r *Registry) RegisterAuthenticator(name string, factory AuthenticatorFactory) error {
	if name == "" || factory == nil {
		return errors.New("invalid authenticator registration")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.authenticators[name]; exists {
		return fmt.Errorf("authenticator %q already registered", name)
	}

	r.authenticators[name] = factory
	return nil
}

// CreateAuthenticator instantiates an authenticator by name.
func (r *Registry) CreateAuthenticator(name string, cfg map[string]any) (Authenticator, error) {
	r.mu.RLock()
	factory, ok := r.authenticators[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("authenticator %q not found", name)
	}

	return factory(cfg)
}

// ListAuthenticators returns registered authenticator names.
func (r *Registry) ListAuthenticators() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.authenticators))
	for name := range r.authenticators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global auth registry with built-in factories.
var DefaultRegistry = NewRegistry()

// resolveSigningKey resolves the configured signing key. The value may be
// a literal, an environment reference like ${SESSION_KEY}, or a
// secretref: when cfg carries a *secret.Resolver under "secrets".
func resolveSigningKey(cfg map[string]any) ([]byte, error) {
	raw, ok := cfg["secret"].(string)
	if !ok || raw == "" {
		return nil, errors.New("auth: signing secret is required")
	}

	resolver, _ := cfg["secrets"].(*secret.Resolver)
	key, err := resolver.ResolveKey(context.Background(), raw)
	if err != nil {
		return nil, fmt.Errorf("auth: resolve signing secret: %w", err)
	}
	return key, nil
}

func init() {
	// Register bearer session-token authenticator
	_ = DefaultRegistry.RegisterAuthenticator("bearer", func(cfg map[string]any) (Authenticator, error) {
		key, err := resolveSigningKey(cfg)
		if err != nil {
			return nil, err
		}

		ttl := time.Hour
		if raw, ok := cfg["ttl"].(string); ok {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return nil, fmt.Errorf("auth: bad ttl: %w", err)
			}
			ttl = d
		}

		codec, err := token.NewSessionCodec(key, ttl)
		if err != nil {
			return nil, err
		}

		config := BearerConfig{}
		if headerName, ok := cfg["header_name"].(string); ok {
			config.HeaderName = headerName
		}
		if tokenPrefix, ok := cfg["token_prefix"].(string); ok {
			config.TokenPrefix = tokenPrefix
		}

		return NewBearerAuthenticator(config, codec), nil
	})

	// Register basic authenticator; the credential store cannot come from
	// flat configuration and is passed through the config map.
	_ = DefaultRegistry.RegisterAuthenticator("basic", func(cfg map[string]any) (Authenticator, error) {
		store, ok := cfg["store"].(CredentialStore)
		if !ok || store == nil {
			return nil, errors.New("auth: basic authenticator needs a credential store")
		}

		config := BasicConfig{}
		if headerName, ok := cfg["header_name"].(string); ok {
			config.HeaderName = headerName
		}

		return NewBasicAuthenticator(config, store), nil
	})
}
