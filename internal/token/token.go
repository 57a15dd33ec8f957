// Package token implements the signed bearer token codec: a stateless,
// time-bounded claim set (subject plus an admin snapshot) signed with a
// process-wide symmetric key.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Decode failure kinds. The HTTP boundary collapses all three to 401,
// but they stay distinguishable for diagnostics.
var (
	// ErrMalformed means the token could not be parsed at all.
	ErrMalformed = errors.New("malformed token")

	// ErrExpired means the token's expiry has passed.
	ErrExpired = errors.New("token expired")

	// ErrInvalidSignature means the signature does not verify under the
	// configured key.
	ErrInvalidSignature = errors.New("invalid token signature")
)

// Claims is the signed payload: registered claims (subject, issued-at,
// expiry) plus the account's admin flag as it was at issuance time.
type Claims struct {
	jwt.RegisteredClaims
	IsAdmin bool `json:"is_admin"`
}

// Codec issues and validates signed tokens. The signing key and lifetime
// are fixed at construction; a Codec holds no other state and is safe for
// concurrent use.
type Codec struct {
	signingKey    []byte
	tokenLifetime time.Duration
}

// New creates a Codec with the given symmetric signing key and token
// lifetime. The key must be identical across all instances that validate
// each other's tokens.
func New(signingKey []byte, tokenLifetime time.Duration) *Codec {
	return &Codec{
		signingKey:    signingKey,
		tokenLifetime: tokenLifetime,
	}
}

// Issue mints a signed token for the given subject. The admin flag is a
// snapshot: it is not refreshed until the next login.
func (c *Codec) Issue(username string, isAdmin bool, now time.Time) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.tokenLifetime)),
		},
		IsAdmin: isAdmin,
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.signingKey)
	if err != nil {
		return "", fmt.Errorf("in internal/token/token.go/Issue(): error while `token.SignedString()` calling: %w", err)
	}

	return tokenString, nil
}

// Decode verifies the signature and expiry of tokenString and returns its
// claims. Expiry is checked against the supplied now, so callers own the
// clock. The error is always one of ErrMalformed, ErrExpired or
// ErrInvalidSignature.
func (c *Codec) Decode(tokenString string, now time.Time) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	parsed, err := parser.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			return c.signingKey, nil
		},
	)
	switch {
	case err == nil && parsed.Valid:
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, ErrMalformed
	default:
		return nil, ErrInvalidSignature
	}

	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrMalformed
	}
	if !now.Before(claims.ExpiresAt.Time) {
		return nil, ErrExpired
	}

	return claims, nil
}
