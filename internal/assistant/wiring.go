// Package assistant decides whether an AI assistant should answer an
// inbound message and dispatches the request without blocking ingestion.
package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNoWiring indicates no active queue/assistant chain exists for the
// instance. Expected control flow, not a fault.
var ErrNoWiring = errors.New("assistant: no active wiring")

// Assistant is a configured AI persona linked to a queue.
type Assistant struct {
	ID       uuid.UUID
	Name     string
	Prompt   string
	Model    string
	Settings []byte // raw JSON settings blob, passed through to the runner
}

// Wiring is the resolved instance → queue → assistant chain.
type Wiring struct {
	QueueID   uuid.UUID
	QueueName string
	Assistant Assistant
}

// Querier is the pgx surface the wiring store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WiringStore resolves active queue connections from Postgres.
type WiringStore struct {
	db Querier
}

func NewWiringStore(db Querier) *WiringStore {
	if db == nil {
		panic("assistant: querier required")
	}
	return &WiringStore{db: db}
}

// ActiveWiring returns the single active queue↔assistant chain for an
// instance, or ErrNoWiring when any link is missing or inactive.
func (s *WiringStore) ActiveWiring(ctx context.Context, instanceID uuid.UUID) (*Wiring, error) {
	query := `
		SELECT q.id, q.name, a.id, a.name,
			COALESCE(a.prompt, ''), COALESCE(a.model, ''), COALESCE(a.settings, '{}')
		FROM instance_queue_connections c
		JOIN queues q ON q.id = c.queue_id AND q.is_active = true
		JOIN assistants a ON a.id = q.assistant_id AND a.is_active = true
		WHERE c.instance_id = $1 AND c.is_active = true
		LIMIT 1
	`
	var w Wiring
	err := s.db.QueryRow(ctx, query, instanceID).Scan(
		&w.QueueID, &w.QueueName,
		&w.Assistant.ID, &w.Assistant.Name,
		&w.Assistant.Prompt, &w.Assistant.Model, &w.Assistant.Settings,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoWiring
	}
	if err != nil {
		return nil, fmt.Errorf("assistant: select wiring: %w", err)
	}
	return &w, nil
}
