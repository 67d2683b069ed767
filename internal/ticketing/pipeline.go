package ticketing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/atendezap/atendezap/internal/webhook"
	"github.com/atendezap/atendezap/pkg/logging"
)

var pipelineTracer = otel.Tracer("atendezap.internal.ticketing.pipeline")

// pipelineStore is the persistence surface the pipeline drives.
type pipelineStore interface {
	FindCustomer(ctx context.Context, clientID uuid.UUID, phone string) (*Customer, error)
	InsertCustomer(ctx context.Context, c *Customer) error
	UpdateCustomerName(ctx context.Context, id uuid.UUID, name string) error
	FindTicket(ctx context.Context, clientID uuid.UUID, chatID string) (*Ticket, error)
	InsertTicket(ctx context.Context, t *Ticket) error
	TouchTicket(ctx context.Context, id uuid.UUID, title, preview string, at time.Time) error
	InsertMessage(ctx context.Context, m *TicketMessage) error
	MarkRawProcessed(ctx context.Context, messageID string) error
}

// Pipeline upserts customer → ticket → message for one normalized inbound
// message. Each step is independently idempotent; any persistence error
// aborts the remaining steps for that message.
type Pipeline struct {
	store  pipelineStore
	logger *logging.Logger
}

func NewPipeline(store pipelineStore, logger *logging.Logger) *Pipeline {
	if store == nil {
		panic("ticketing: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Pipeline{store: store, logger: logger}
}

// Result reports what the pipeline produced for downstream collaborators.
type Result struct {
	TicketID   uuid.UUID
	CustomerID uuid.UUID
}

// Process runs the upsert chain for one message.
func (p *Pipeline) Process(ctx context.Context, msg webhook.Message, clientID, instanceID uuid.UUID) (*Result, error) {
	ctx, span := pipelineTracer.Start(ctx, "ticketing.process")
	defer span.End()
	span.SetAttributes(
		attribute.String("atendezap.message_id", msg.MessageID),
		attribute.String("atendezap.chat_id", msg.ChatID),
	)

	customer, err := p.upsertCustomer(ctx, msg, clientID)
	if err != nil {
		return nil, err
	}

	ticket, err := p.upsertTicket(ctx, msg, clientID, instanceID, customer)
	if err != nil {
		return nil, err
	}

	status := ""
	if msg.MessageType == "audio" || msg.MessageType == "ptt" {
		status = StatusReceived
	}
	senderName := msg.ContactName
	if msg.FromMe {
		senderName = OutboundSenderName
	}
	err = p.store.InsertMessage(ctx, &TicketMessage{
		TicketID:         ticket.ID,
		MessageID:        msg.MessageID,
		Content:          msg.Content,
		MessageType:      msg.MessageType,
		FromMe:           msg.FromMe,
		SenderName:       senderName,
		Timestamp:        msg.Timestamp,
		ProcessingStatus: status,
		MediaKey:         msg.MediaKey,
		MediaURL:         msg.MediaURL,
		MimeType:         msg.MimeType,
		DirectPath:       msg.DirectPath,
		AudioBase64:      msg.Base64,
	})
	if err != nil {
		return nil, err
	}

	if err := p.store.MarkRawProcessed(ctx, msg.MessageID); err != nil {
		return nil, err
	}

	p.logger.Info("message ingested",
		"message_id", msg.MessageID,
		"ticket_id", ticket.ID,
		"customer_id", customer.ID,
		"type", msg.MessageType,
	)
	return &Result{TicketID: ticket.ID, CustomerID: customer.ID}, nil
}

func (p *Pipeline) upsertCustomer(ctx context.Context, msg webhook.Message, clientID uuid.UUID) (*Customer, error) {
	existing, err := p.store.FindCustomer(ctx, clientID, msg.PhoneNumber)
	switch {
	case errors.Is(err, ErrNotFound):
		c := &Customer{
			ClientID: clientID,
			Name:     msg.ContactName,
			Phone:    msg.PhoneNumber,
			ChatID:   msg.ChatID,
		}
		if c.Name == "" {
			c.Name = GenericContactName
		}
		if err := p.store.InsertCustomer(ctx, c); err != nil {
			return nil, err
		}
		return c, nil
	case err != nil:
		return nil, err
	}

	if BetterName(existing.Name, msg.ContactName, msg.PhoneNumber) {
		if err := p.store.UpdateCustomerName(ctx, existing.ID, msg.ContactName); err != nil {
			return nil, err
		}
		existing.Name = msg.ContactName
	}
	return existing, nil
}

func (p *Pipeline) upsertTicket(ctx context.Context, msg webhook.Message, clientID, instanceID uuid.UUID, customer *Customer) (*Ticket, error) {
	title := fmt.Sprintf("Conversa com %s", customer.Name)

	existing, err := p.store.FindTicket(ctx, clientID, msg.ChatID)
	switch {
	case errors.Is(err, ErrNotFound):
		t := &Ticket{
			ClientID:           clientID,
			CustomerID:         customer.ID,
			InstanceID:         instanceID,
			ChatID:             msg.ChatID,
			Status:             TicketOpen,
			Title:              title,
			LastMessagePreview: preview(msg),
			LastMessageAt:      msg.Timestamp,
		}
		if err := p.store.InsertTicket(ctx, t); err != nil {
			return nil, err
		}
		return t, nil
	case err != nil:
		return nil, err
	}

	if err := p.store.TouchTicket(ctx, existing.ID, title, preview(msg), msg.Timestamp); err != nil {
		return nil, err
	}
	return existing, nil
}

func preview(msg webhook.Message) string {
	if msg.Content != "" {
		return msg.Content
	}
	switch msg.MessageType {
	case "audio", "ptt":
		return "🎤 Mensagem de voz"
	case "image":
		return "📷 Imagem"
	case "document":
		return "📄 Documento"
	default:
		return msg.MessageType
	}
}
