package assistant

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/atendezap/atendezap/pkg/logging"
)

// Request carries everything the external assistant pipeline needs to
// produce a reply.
type Request struct {
	TicketID   uuid.UUID `json:"ticketId"`
	ClientID   uuid.UUID `json:"clientId"`
	InstanceID uuid.UUID `json:"instanceId"`
	Content    string    `json:"content"`
	Assistant  Assistant `json:"-"`

	// Conversational context.
	CustomerName string `json:"customerName"`
	Phone        string `json:"phone"`
	ChatID       string `json:"chatId"`
}

// Runner invokes the external AI-assistant collaborator.
type Runner interface {
	Run(ctx context.Context, wiring *Wiring, req Request) error
}

// wiringLookup is the subset of WiringStore the trigger needs.
type wiringLookup interface {
	ActiveWiring(ctx context.Context, instanceID uuid.UUID) (*Wiring, error)
}

// Trigger fires the assistant pipeline after ticketing commits. Its
// failures are logged and swallowed: ticket durability must never depend
// on AI availability.
type Trigger struct {
	wiring  wiringLookup
	runner  Runner
	logger  *logging.Logger
	timeout time.Duration

	// dispatched is closed-over by tests to observe the async hand-off.
	dispatched chan struct{}
}

func NewTrigger(wiring wiringLookup, runner Runner, logger *logging.Logger, timeout time.Duration) *Trigger {
	if wiring == nil {
		panic("assistant: wiring lookup required")
	}
	if runner == nil {
		panic("assistant: runner required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Trigger{wiring: wiring, runner: runner, logger: logger, timeout: timeout}
}

// Maybe checks the queue wiring and, when an active assistant exists,
// dispatches the request on its own goroutine with an isolated error
// boundary. Returns whether a dispatch happened.
func (t *Trigger) Maybe(ctx context.Context, fromMe bool, req Request) bool {
	if t == nil || fromMe {
		return false
	}

	wiring, err := t.wiring.ActiveWiring(ctx, req.InstanceID)
	if errors.Is(err, ErrNoWiring) {
		t.logger.Info("no active assistant for instance",
			"instance_id", req.InstanceID, "ticket_id", req.TicketID)
		return false
	}
	if err != nil {
		t.logger.Warn("assistant wiring lookup failed", "error", err, "ticket_id", req.TicketID)
		return false
	}

	req.Assistant = wiring.Assistant
	go t.dispatch(wiring, req)
	return true
}

// dispatch runs off the webhook's request context so a slow assistant
// cannot be cancelled by, or delay, the HTTP response.
func (t *Trigger) dispatch(wiring *Wiring, req Request) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("assistant runner panicked", "panic", r, "ticket_id", req.TicketID)
		}
		if t.dispatched != nil {
			t.dispatched <- struct{}{}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	if err := t.runner.Run(ctx, wiring, req); err != nil {
		t.logger.Error("assistant run failed",
			"error", err,
			"ticket_id", req.TicketID,
			"assistant", wiring.Assistant.Name,
		)
		return
	}
	t.logger.Info("assistant dispatched",
		"ticket_id", req.TicketID,
		"queue", wiring.QueueName,
		"assistant", wiring.Assistant.Name,
	)
}
