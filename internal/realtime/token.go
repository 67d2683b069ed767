// Package realtime subscribes to ticket-message inserts pushed over the
// realtime websocket transport.
package realtime

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource mints short-lived bearer tokens for the realtime transport.
type TokenSource struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenSource(secret string, ttl time.Duration) *TokenSource {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenSource{secret: []byte(secret), ttl: ttl}
}

// Token signs an HS256 token scoped to one instance name.
func (t *TokenSource) Token(instanceName string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": instanceName,
		"iat": now.Unix(),
		"exp": now.Add(t.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("realtime: sign token: %w", err)
	}
	return signed, nil
}
