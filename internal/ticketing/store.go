package ticketing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound indicates a lookup matched no row.
var ErrNotFound = errors.New("ticketing: not found")

// Querier is the pgx surface the store needs; satisfied by *pgxpool.Pool
// and by pgxmock in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists customers, tickets and ticket messages in Postgres.
type Store struct {
	db Querier
}

func NewStore(db Querier) *Store {
	if db == nil {
		panic("ticketing: querier required")
	}
	return &Store{db: db}
}

// FindCustomer looks up a customer by (client, phone).
func (s *Store) FindCustomer(ctx context.Context, clientID uuid.UUID, phone string) (*Customer, error) {
	query := `
		SELECT id, client_id, name, phone, COALESCE(whatsapp_chat_id, ''), updated_at
		FROM customers
		WHERE client_id = $1 AND phone = $2
		LIMIT 1
	`
	var c Customer
	err := s.db.QueryRow(ctx, query, clientID, phone).Scan(
		&c.ID, &c.ClientID, &c.Name, &c.Phone, &c.ChatID, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ticketing: select customer: %w", err)
	}
	return &c, nil
}

// InsertCustomer creates a new customer row.
func (s *Store) InsertCustomer(ctx context.Context, c *Customer) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	query := `
		INSERT INTO customers (id, client_id, name, phone, whatsapp_chat_id)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.Exec(ctx, query, c.ID, c.ClientID, c.Name, c.Phone, c.ChatID); err != nil {
		return fmt.Errorf("ticketing: insert customer: %w", err)
	}
	return nil
}

// UpdateCustomerName overwrites the display name.
func (s *Store) UpdateCustomerName(ctx context.Context, id uuid.UUID, name string) error {
	query := `UPDATE customers SET name = $2, updated_at = now() WHERE id = $1`
	if _, err := s.db.Exec(ctx, query, id, name); err != nil {
		return fmt.Errorf("ticketing: update customer name: %w", err)
	}
	return nil
}

// FindTicket looks up the conversation ticket for (client, chat id).
func (s *Store) FindTicket(ctx context.Context, clientID uuid.UUID, chatID string) (*Ticket, error) {
	query := `
		SELECT id, client_id, customer_id, instance_id, chat_id, status, title,
			COALESCE(last_message_preview, ''), last_message_at
		FROM conversation_tickets
		WHERE client_id = $1 AND chat_id = $2
		LIMIT 1
	`
	var t Ticket
	err := s.db.QueryRow(ctx, query, clientID, chatID).Scan(
		&t.ID, &t.ClientID, &t.CustomerID, &t.InstanceID, &t.ChatID,
		&t.Status, &t.Title, &t.LastMessagePreview, &t.LastMessageAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ticketing: select ticket: %w", err)
	}
	return &t, nil
}

// InsertTicket creates a new open conversation ticket.
func (s *Store) InsertTicket(ctx context.Context, t *Ticket) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	query := `
		INSERT INTO conversation_tickets
			(id, client_id, customer_id, instance_id, chat_id, status, title,
			 last_message_preview, last_message_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.Exec(ctx, query,
		t.ID, t.ClientID, t.CustomerID, t.InstanceID, t.ChatID,
		t.Status, t.Title, t.LastMessagePreview, t.LastMessageAt,
	)
	if err != nil {
		return fmt.Errorf("ticketing: insert ticket: %w", err)
	}
	return nil
}

// TouchTicket updates the mutable preview fields in place. Status is left
// untouched once set; preview ordering is last-write-wins.
func (s *Store) TouchTicket(ctx context.Context, id uuid.UUID, title, preview string, at time.Time) error {
	query := `
		UPDATE conversation_tickets
		SET title = $2, last_message_preview = $3, last_message_at = $4, updated_at = now()
		WHERE id = $1
	`
	if _, err := s.db.Exec(ctx, query, id, title, preview, at); err != nil {
		return fmt.Errorf("ticketing: touch ticket: %w", err)
	}
	return nil
}

// InsertMessage appends a ticket message row.
func (s *Store) InsertMessage(ctx context.Context, m *TicketMessage) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	query := `
		INSERT INTO ticket_messages
			(id, ticket_id, message_id, content, message_type, from_me, sender_name,
			 timestamp, processing_status, is_ai_response, is_internal_note,
			 media_key, media_url, mime_type, direct_path, audio_base64)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			NULLIF($12, ''), NULLIF($13, ''), NULLIF($14, ''), NULLIF($15, ''), NULLIF($16, ''))
	`
	_, err := s.db.Exec(ctx, query,
		m.ID, m.TicketID, m.MessageID, m.Content, m.MessageType, m.FromMe,
		m.SenderName, m.Timestamp, m.ProcessingStatus, m.IsAIResponse,
		m.IsInternalNote, m.MediaKey, m.MediaURL, m.MimeType, m.DirectPath, m.AudioBase64,
	)
	if err != nil {
		return fmt.Errorf("ticketing: insert message: %w", err)
	}
	return nil
}

// InsertRawLog records the raw gateway delivery for audit. Duplicate
// provider ids are ignored so webhook redeliveries stay idempotent.
func (s *Store) InsertRawLog(ctx context.Context, messageID, instanceID, event string, payload []byte) error {
	query := `
		INSERT INTO whatsapp_messages (id, message_id, instance_id, event, payload, processed)
		VALUES ($1, $2, $3, $4, $5, false)
		ON CONFLICT (message_id) DO NOTHING
	`
	if _, err := s.db.Exec(ctx, query, uuid.New(), messageID, instanceID, event, payload); err != nil {
		return fmt.Errorf("ticketing: insert raw log: %w", err)
	}
	return nil
}

// MarkRawProcessed flips the processed flag on the raw delivery log.
func (s *Store) MarkRawProcessed(ctx context.Context, messageID string) error {
	query := `UPDATE whatsapp_messages SET processed = true, updated_at = now() WHERE message_id = $1`
	if _, err := s.db.Exec(ctx, query, messageID); err != nil {
		return fmt.Errorf("ticketing: mark raw processed: %w", err)
	}
	return nil
}
