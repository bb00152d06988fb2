package credential

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps credential kinds to validators. The set of kinds is
// closed: looking up an unregistered kind is an error, never a fallback.
type Registry struct {
	mu         sync.RWMutex
	validators map[Kind]Validator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{validators: make(map[Kind]Validator)}
}

// DefaultRegistry returns a registry with the built-in local validators.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(NewPasswordValidator(PasswordConfig{}))
	_ = r.Register(NewOneTimePasswordValidator())
	return r
}

// Register adds a validator for its kind.
func (r *Registry) Register(v Validator) error {
	if v == nil || !v.Kind().Valid() {
		return ErrUnknownKind
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.validators[v.Kind()]; exists {
		return fmt.Errorf("credential: validator for kind %q already registered", v.Kind())
	}
	r.validators[v.Kind()] = v
	return nil
}

// Lookup returns the validator for kind.
func (r *Registry) Lookup(kind Kind) (Validator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.validators[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return v, nil
}

// Kinds returns the registered kinds.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]Kind, 0, len(r.validators))
	for k := range r.validators {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
