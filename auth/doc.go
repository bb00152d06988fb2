// Package auth authenticates requests against session tokens and stored
// credentials.
//
// It supports bearer session tokens and HTTP Basic credentials, composable
// through CompositeAuthenticator. The package is protocol-agnostic and can
// be used with any transport layer; WithAuthHeaders adapts net/http.
package auth
