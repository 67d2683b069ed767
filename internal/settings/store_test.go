package settings

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atendezap/atendezap/pkg/logging"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestOpenAIKeyFromDatabaseThenCache(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	clientID := uuid.New()
	mock.ExpectQuery("SELECT .+ FROM client_settings").
		WithArgs(clientID).
		WillReturnRows(pgxmock.NewRows([]string{"openai_api_key"}).AddRow("sk-client-key"))

	store := NewStore(mock, testRedis(t), "sk-default", logging.Default())

	key, err := store.OpenAIKey(context.Background(), clientID)
	require.NoError(t, err)
	assert.Equal(t, "sk-client-key", key)

	// Second call is served from cache; no further query expectations.
	key, err = store.OpenAIKey(context.Background(), clientID)
	require.NoError(t, err)
	assert.Equal(t, "sk-client-key", key)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenAIKeyFallsBackToDefault(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	clientID := uuid.New()
	mock.ExpectQuery("SELECT .+ FROM client_settings").
		WithArgs(clientID).
		WillReturnRows(pgxmock.NewRows([]string{"openai_api_key"}))

	store := NewStore(mock, nil, "sk-default", logging.Default())
	key, err := store.OpenAIKey(context.Background(), clientID)
	require.NoError(t, err)
	assert.Equal(t, "sk-default", key)
}

func TestOpenAIKeyNotConfigured(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	clientID := uuid.New()
	mock.ExpectQuery("SELECT .+ FROM client_settings").
		WithArgs(clientID).
		WillReturnRows(pgxmock.NewRows([]string{"openai_api_key"}).AddRow(""))

	store := NewStore(mock, nil, "", logging.Default())
	_, err = store.OpenAIKey(context.Background(), clientID)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
