// Package ticketing turns normalized inbound messages into durable
// customer, ticket and ticket-message rows.
package ticketing

import (
	"time"

	"github.com/google/uuid"
)

// Processing states for audio/ptt ticket messages.
const (
	StatusReceived   = "received"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Ticket statuses written by this pipeline. Closing is owned by the UI.
const TicketOpen = "open"

// GenericContactName is the placeholder stored when no real name is known.
const GenericContactName = "Contato sem nome"

// OutboundSenderName labels agent-sent messages in the conversation view.
const OutboundSenderName = "Atendente"

// Customer is a contact known to a client, keyed by (client, phone).
type Customer struct {
	ID        uuid.UUID
	ClientID  uuid.UUID
	Name      string
	Phone     string
	ChatID    string
	UpdatedAt time.Time
}

// Ticket is one conversation thread, keyed by (client, chat id).
type Ticket struct {
	ID                 uuid.UUID
	ClientID           uuid.UUID
	CustomerID         uuid.UUID
	InstanceID         uuid.UUID
	ChatID             string
	Status             string
	Title              string
	LastMessagePreview string
	LastMessageAt      time.Time
}

// TicketMessage is one inbound/outbound message belonging to a ticket.
type TicketMessage struct {
	ID               uuid.UUID
	TicketID         uuid.UUID
	MessageID        string // provider message id, globally unique
	Content          string
	MessageType      string
	FromMe           bool
	SenderName       string
	Timestamp        time.Time
	ProcessingStatus string
	IsAIResponse     bool
	IsInternalNote   bool

	// Media fields for audio/ptt messages.
	MediaKey      string
	MediaURL      string
	MimeType      string
	DirectPath    string
	AudioBase64   string
	Transcription string
}

// IsAudio reports whether the message type goes through transcription.
func (m *TicketMessage) IsAudio() bool {
	return m.MessageType == "audio" || m.MessageType == "ptt"
}
