// Package credential defines the credential kinds known to the system and
// the secret validators that check a presented secret against stored
// credential data.
//
// Validators form a closed set: every Kind maps to exactly one Validator
// through a Registry, so dispatch is exhaustive and checkable.
package credential
