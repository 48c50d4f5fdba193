package jwt

import "github.com/golang-jwt/jwt"

// Claims is the subset of the API's bearer token claims the client cares about.
// The API signs its tokens; the client never verifies the signature and only
// reads the claims to avoid sending a token it already knows to be expired.
type Claims struct {
	jwt.StandardClaims

	// ID is the user id the token was issued for.
	ID string `json:"id"`
}
