package idp

import "github.com/laurelhq/laurel/credential"

// Google endpoint constants.
const (
	googleAuthorizationEndpoint = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenEndpoint         = "https://oauth2.googleapis.com/token"
	googleJWKSURL               = "https://www.googleapis.com/oauth2/v3/certs"
	googleIssuer                = "https://accounts.google.com"
)

// Google creates the code-exchange provider for Google sign-in.
func Google(clientID, clientSecret string) (*OIDCProvider, error) {
	return NewOIDCProvider(OIDCConfig{
		Name:                  "google",
		Kind:                  credential.KindGoogle,
		AuthorizationEndpoint: googleAuthorizationEndpoint,
		TokenEndpoint:         googleTokenEndpoint,
		JWKSURL:               googleJWKSURL,
		Issuer:                googleIssuer,
		ClientID:              clientID,
		ClientSecret:          clientSecret,
	})
}
