package realtime

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCarriesInstanceSubject(t *testing.T) {
	source := NewTokenSource("test-secret", time.Minute)

	signed, err := source.Token("minha-instancia")
	require.NoError(t, err)

	parsed, err := jwt.Parse(signed, func(tok *jwt.Token) (any, error) {
		return []byte("test-secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	sub, err := parsed.Claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, "minha-instancia", sub)

	exp, err := parsed.Claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp.Time, 5*time.Second)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	source := NewTokenSource("right-secret", time.Minute)

	signed, err := source.Token("inst")
	require.NoError(t, err)

	_, err = jwt.Parse(signed, func(tok *jwt.Token) (any, error) {
		return []byte("wrong-secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	assert.Error(t, err)
}

func TestTokenSourceDefaultsTTL(t *testing.T) {
	source := NewTokenSource("s", 0)
	assert.Equal(t, time.Hour, source.ttl)
}
