package instance

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the pgx surface the repository needs; satisfied by
// *pgxpool.Pool and by pgxmock in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads and backfills whatsapp_instances rows.
type Repository struct {
	db Querier
}

func NewRepository(db Querier) *Repository {
	if db == nil {
		panic("instance: querier required")
	}
	return &Repository{db: db}
}

const instanceColumns = `id, client_id, instance_id,
	COALESCE(yumer_instance_name, ''), COALESCE(custom_name, ''),
	COALESCE(auth_token, ''), COALESCE(status, ''), updated_at`

func (r *Repository) scanOne(ctx context.Context, query string, args ...any) (*Instance, error) {
	var inst Instance
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&inst.ID,
		&inst.ClientID,
		&inst.InstanceID,
		&inst.ProviderName,
		&inst.CustomName,
		&inst.AuthToken,
		&inst.Status,
		&inst.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("instance: select failed: %w", err)
	}
	return &inst, nil
}

// ByProviderName matches the canonical gateway-side name.
func (r *Repository) ByProviderName(ctx context.Context, name string) (*Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM whatsapp_instances WHERE yumer_instance_name = $1 LIMIT 1`
	return r.scanOne(ctx, query, name)
}

// ByCustomName matches the administrator-assigned label.
func (r *Repository) ByCustomName(ctx context.Context, name string) (*Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM whatsapp_instances WHERE custom_name = $1 LIMIT 1`
	return r.scanOne(ctx, query, name)
}

// ByInstanceID matches the internal external-identifier field exactly.
func (r *Repository) ByInstanceID(ctx context.Context, id string) (*Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM whatsapp_instances WHERE instance_id = $1 LIMIT 1`
	return r.scanOne(ctx, query, id)
}

// ByInstanceIDPattern matches instance ids containing the name as a substring.
func (r *Repository) ByInstanceIDPattern(ctx context.Context, name string) (*Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM whatsapp_instances WHERE instance_id LIKE '%' || $1 || '%' LIMIT 1`
	return r.scanOne(ctx, query, name)
}

// BackfillProviderName stores the canonical gateway name so future lookups
// hit the first strategy directly.
func (r *Repository) BackfillProviderName(ctx context.Context, id uuid.UUID, name string) error {
	query := `UPDATE whatsapp_instances SET yumer_instance_name = $2, updated_at = now() WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id, name); err != nil {
		return fmt.Errorf("instance: backfill provider name: %w", err)
	}
	return nil
}

// UpdateConnectionStatus records the gateway-reported connection state.
// Best effort: callers log and continue on failure.
func (r *Repository) UpdateConnectionStatus(ctx context.Context, instanceID string, status string) error {
	query := `UPDATE whatsapp_instances SET status = $2, updated_at = now() WHERE instance_id = $1 OR yumer_instance_name = $1`
	if _, err := r.db.Exec(ctx, query, instanceID, status); err != nil {
		return fmt.Errorf("instance: update connection status: %w", err)
	}
	return nil
}
