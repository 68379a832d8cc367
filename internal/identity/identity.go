// Package identity implements the Identity port (spec §4.6) with
// signed JWTs, grounded on ws/handler.go's call to service.ParseJWT to
// resolve the bearer token carried on the WebSocket upgrade request's
// "token" query parameter.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
)

type claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// JWTIdentity resolves bearer tokens signed with a shared secret.
type JWTIdentity struct {
	secret []byte
	ttl    time.Duration
}

// New builds a JWTIdentity. ttl controls how long tokens minted by
// Issue remain valid.
func New(secret string, ttl time.Duration) *JWTIdentity {
	return &JWTIdentity{secret: []byte(secret), ttl: ttl}
}

// Resolve implements ports.Identity.
func (j *JWTIdentity) Resolve(ctx context.Context, token string) (userID, displayName string, err error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return j.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", "", ErrInvalidToken
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || c.Subject == "" {
		return "", "", ErrInvalidToken
	}
	return c.Subject, c.Name, nil
}

// Issue mints a bearer token for userID, used once a Telegram login
// (or any other out-of-band authentication) has been verified.
func (j *JWTIdentity) Issue(userID, displayName string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Name: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	})
	return token.SignedString(j.secret)
}
