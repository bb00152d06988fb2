// Package idp integrates with external identity providers.
//
// A Provider builds the outbound authorization redirect URL for a flow and
// exchanges the inbound callback for a verified external identity. All
// verification fails closed: a bad assertion yields an invalid result, not
// a partially trusted one, and only transport-level trouble surfaces as
// ErrProviderUnavailable so callers know the difference between "retry
// later" and "do not retry".
package idp
