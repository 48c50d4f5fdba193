/*
Package jwt inspects the API's bearer tokens.

Tokens are opaque to the client by contract. When a token happens to be a JWT,
its expiry is read (without signature verification) so that a persisted session
that has already expired is discarded at boot instead of being sent to the server.
GenerateToken is the issuing side and is used by the in-memory API fake.
*/
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

// TokenIssuer is the issuer written by GenerateToken.
const TokenIssuer = "blog-api"

// ErrNotJWT is returned by Inspect for tokens that are not JWTs.
var ErrNotJWT = errors.New("token is not a JWT")

// Inspect decodes the claims of tokenString without verifying its signature.
func Inspect(tokenString string) (*Claims, error) {
	claims := &Claims{}

	parser := &jwt.Parser{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrNotJWT
	}

	return claims, nil
}

// Expired reports whether tokenString is a JWT whose exp claim lies before now.
// Opaque tokens, and JWTs without an exp claim, are never considered expired;
// the server stays the authority for those.
func Expired(tokenString string, now time.Time) bool {
	claims, err := Inspect(tokenString)
	if err != nil || claims.ExpiresAt == 0 {
		return false
	}

	return now.Unix() >= claims.ExpiresAt
}

// GenerateToken signs an HS256 token for userID valid for duration.
func GenerateToken(userID string, secretKey string, duration time.Duration) (string, error) {
	now := time.Now()

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(duration).Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    TokenIssuer,
			Subject:   userID,
		},
		ID: userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secretKey))
}

// ParseToken validates tokenString against secretKey and returns its claims.
func ParseToken(tokenString string, secretKey string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	return claims, nil
}
