// Package flow drives sign-in and sign-up through external identity
// providers: it carries signup intent across the redirect boundary as a
// signed state token, maps a verified external identity to exactly one
// local person and organization, links credentials, and mints session
// tokens. It also owns the password set/change and set-password-link
// flows.
//
// Persistence is reached only through the narrow Store interface; every
// signup attempt runs inside a single transaction supplied by the store.
package flow
