// Package settings resolves per-client configuration, currently the
// speech-provider credential used for audio transcription.
package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/atendezap/atendezap/pkg/logging"
)

// ErrNotConfigured indicates the client has no speech credential set and
// no default is available.
var ErrNotConfigured = errors.New("settings: speech credential not configured")

const (
	cacheKeyPrefix = "client_settings:openai_key:"
	cacheTTL       = 5 * time.Minute
)

// Rows is the pgx lookup surface the store needs.
type Rows interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads client settings from Postgres with a Redis cache in front.
// A nil redis client disables caching.
type Store struct {
	db         Rows
	cache      *redis.Client
	defaultKey string
	logger     *logging.Logger
}

func NewStore(db Rows, cache *redis.Client, defaultKey string, logger *logging.Logger) *Store {
	if db == nil {
		panic("settings: querier required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{db: db, cache: cache, defaultKey: defaultKey, logger: logger}
}

// OpenAIKey resolves the speech credential for a client: cache, then
// Postgres, then the environment default.
func (s *Store) OpenAIKey(ctx context.Context, clientID uuid.UUID) (string, error) {
	cacheKey := cacheKeyPrefix + clientID.String()

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			return cached, nil
		} else if err != nil && !errors.Is(err, redis.Nil) {
			s.logger.Warn("settings cache read failed", "error", err, "client_id", clientID)
		}
	}

	var key string
	query := `SELECT COALESCE(openai_api_key, '') FROM client_settings WHERE client_id = $1`
	err := s.db.QueryRow(ctx, query, clientID).Scan(&key)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("settings: select client settings: %w", err)
	}

	if key == "" {
		key = s.defaultKey
	}
	if key == "" {
		return "", ErrNotConfigured
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, key, cacheTTL).Err(); err != nil {
			s.logger.Warn("settings cache write failed", "error", err, "client_id", clientID)
		}
	}
	return key, nil
}
