package auth

import "net/http"

// WithAuthHeaders is HTTP middleware that extracts request headers
// into the context for use by authenticators.
//
// Usage:
//
//	mux.Handle("/api", auth.WithAuthHeaders(apiHandler))
func WithAuthHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithHeaders(r.Context(), r.Header)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// NewRequest builds an AuthRequest from an HTTP request.
func NewRequest(r *http.Request) *AuthRequest {
	return &AuthRequest{
		Headers:  r.Header,
		Resource: r.URL.Path,
	}
}
