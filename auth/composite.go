package auth

import "context"

// CompositeAuthenticator tries a chain of authenticators in order and
// returns the first success. Credential failures fall through to the next
// authenticator; internal errors stop the chain.
type CompositeAuthenticator struct {
	chain []Authenticator
}

// NewCompositeAuthenticator creates a composite over authenticators,
// tried in the given order.
func NewCompositeAuthenticator(authenticators ...Authenticator) *CompositeAuthenticator {
	return &CompositeAuthenticator{chain: authenticators}
}

// Name returns "composite".
func (c *CompositeAuthenticator) Name() string {
	return "composite"
}

// Supports reports whether any authenticator in the chain supports req.
func (c *CompositeAuthenticator) Supports(ctx context.Context, req *AuthRequest) bool {
	for _, a := range c.chain {
		if a.Supports(ctx, req) {
			return true
		}
	}
	return false
}

// Authenticate runs the chain. When no authenticator succeeds the last
// failure is returned so the caller sees the most specific refusal; a
// request nothing in the chain supports is a missing-credentials failure.
func (c *CompositeAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	var last *AuthResult
	for _, a := range c.chain {
		if !a.Supports(ctx, req) {
			continue
		}
		result, err := a.Authenticate(ctx, req)
		if err != nil {
			return nil, err
		}
		if result.Authenticated {
			return result, nil
		}
		last = result
	}
	if last != nil {
		return last, nil
	}
	return AuthFailure(ErrMissingCredentials, c.Name()), nil
}

var _ Authenticator = (*CompositeAuthenticator)(nil)
