// Package secret resolves configured secret values, keeping signing keys
// and provider client secrets out of configuration files.
//
// A value is either a literal (with strict ${VAR} environment expansion)
// or a reference handed to a named provider:
//
//	secretref:env:SESSION_SIGNING_KEY
//	secretref:vault:oidc/google-client-secret
//
// The env provider is always installed; others register on the Resolver.
package secret
