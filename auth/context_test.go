package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPrincipalContextRoundTrip(t *testing.T) {
	p := &Principal{PersonID: 7, OrganizationID: "org-1", Name: "alice"}
	ctx := WithPrincipal(context.Background(), p)

	if got := PrincipalFromContext(ctx); got != p {
		t.Errorf("PrincipalFromContext() = %v, want %v", got, p)
	}
	if got := PersonIDFromContext(ctx); got != 7 {
		t.Errorf("PersonIDFromContext() = %d, want 7", got)
	}
	if got := OrganizationIDFromContext(ctx); got != "org-1" {
		t.Errorf("OrganizationIDFromContext() = %q, want org-1", got)
	}
}

func TestPrincipalContextEmpty(t *testing.T) {
	ctx := context.Background()

	if got := PrincipalFromContext(ctx); got != nil {
		t.Errorf("PrincipalFromContext() = %v, want nil", got)
	}
	if got := PersonIDFromContext(ctx); got != 0 {
		t.Errorf("PersonIDFromContext() = %d, want 0", got)
	}
	if got := OrganizationIDFromContext(ctx); got != "" {
		t.Errorf("OrganizationIDFromContext() = %q, want empty", got)
	}
}

func TestWithAuthHeaders(t *testing.T) {
	var seen string
	handler := WithAuthHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetHeader(r.Context(), "Authorization")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Authorization", "Bearer token123")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "Bearer token123" {
		t.Errorf("header from context = %q, want Bearer token123", seen)
	}
}

func TestNewRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/widgets", nil)
	req.Header.Set("Authorization", "Basic abc")

	authReq := NewRequest(req)
	if got := authReq.GetHeader("Authorization"); got != "Basic abc" {
		t.Errorf("GetHeader() = %q, want Basic abc", got)
	}
	if authReq.Resource != "/api/widgets" {
		t.Errorf("Resource = %q, want /api/widgets", authReq.Resource)
	}
}
