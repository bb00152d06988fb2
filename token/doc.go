// Package token encodes and decodes the compact signed claim sets used by
// the authentication subsystem: long-lived session tokens and short-lived
// callback-state tokens carried through external provider redirects.
//
// Both purposes share one codec mechanism (HMAC-signed JWTs) but are
// issued with distinct audiences, so a callback-state token can never be
// presented as a session token or vice versa.
package token
