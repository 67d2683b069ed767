package instance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func instanceRows(inst Instance) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "client_id", "instance_id", "yumer_instance_name",
		"custom_name", "auth_token", "status", "updated_at",
	}).AddRow(
		inst.ID, inst.ClientID, inst.InstanceID, inst.ProviderName,
		inst.CustomName, inst.AuthToken, inst.Status, inst.UpdatedAt,
	)
}

func TestRepositoryByProviderName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	want := Instance{
		ID:           uuid.New(),
		ClientID:     uuid.New(),
		InstanceID:   "inst-9",
		ProviderName: "biz1",
		UpdatedAt:    time.Now().UTC(),
	}
	mock.ExpectQuery("SELECT .+ FROM whatsapp_instances WHERE yumer_instance_name = \\$1").
		WithArgs("biz1").
		WillReturnRows(instanceRows(want))

	repo := NewRepository(mock)
	got, err := repo.ByProviderName(context.Background(), "biz1")
	require.NoError(t, err)
	assert.Equal(t, want.InstanceID, got.InstanceID)
	assert.Equal(t, want.ProviderName, got.ProviderName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryByProviderNameMiss(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM whatsapp_instances WHERE yumer_instance_name = \\$1").
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "client_id", "instance_id", "yumer_instance_name",
			"custom_name", "auth_token", "status", "updated_at",
		}))

	repo := NewRepository(mock)
	_, err = repo.ByProviderName(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryBackfillProviderName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec("UPDATE whatsapp_instances SET yumer_instance_name = \\$2").
		WithArgs(id, "biz1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewRepository(mock)
	require.NoError(t, repo.BackfillProviderName(context.Background(), id, "biz1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryByInstanceIDPattern(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	want := Instance{ID: uuid.New(), ClientID: uuid.New(), InstanceID: "prod-app-7"}
	mock.ExpectQuery("SELECT .+ FROM whatsapp_instances WHERE instance_id LIKE").
		WithArgs("app").
		WillReturnRows(instanceRows(want))

	repo := NewRepository(mock)
	got, err := repo.ByInstanceIDPattern(context.Background(), "app")
	require.NoError(t, err)
	assert.Equal(t, "prod-app-7", got.InstanceID)
}
