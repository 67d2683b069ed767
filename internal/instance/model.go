// Package instance resolves gateway-side instance identifiers to the
// internal whatsapp_instances records they belong to.
package instance

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates no instance matched any resolution strategy.
var ErrNotFound = errors.New("instance: not found")

// Instance is one managed WhatsApp connection belonging to a client.
type Instance struct {
	ID           uuid.UUID
	ClientID     uuid.UUID
	InstanceID   string // external identifier used by the gateway
	ProviderName string // canonical gateway-side name (yumer_instance_name)
	CustomName   string // administrator-assigned label
	AuthToken    string
	Status       string
	UpdatedAt    time.Time
}
