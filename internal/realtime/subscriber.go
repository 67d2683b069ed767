package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/atendezap/atendezap/pkg/logging"
)

// MessageEvent is one ticket-message insert pushed over the socket.
type MessageEvent struct {
	MessageID        string `json:"message_id"`
	TicketID         string `json:"ticket_id"`
	ClientID         string `json:"client_id"`
	MessageType      string `json:"message_type"`
	FromMe           bool   `json:"from_me"`
	IsAIResponse     bool   `json:"is_ai_response"`
	ProcessingStatus string `json:"processing_status"`
}

type envelope struct {
	Event string          `json:"event"`
	Table string          `json:"table"`
	Data  json.RawMessage `json:"data"`
}

// Subscriber maintains a websocket subscription to ticket_messages inserts
// and hands decoded events to a callback. It reconnects with backoff until
// the context is cancelled.
type Subscriber struct {
	url    string
	tokens *TokenSource
	dialer *websocket.Dialer
	logger *logging.Logger

	mu           sync.Mutex
	lastActivity time.Time
}

func NewSubscriber(url string, tokens *TokenSource, logger *logging.Logger) *Subscriber {
	return &Subscriber{
		url:    url,
		tokens: tokens,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger: logger,
	}
}

// LastActivity reports when the subscriber last received an event. The zero
// time means no event has arrived since the subscriber started.
func (s *Subscriber) LastActivity() time.Time {
	if s == nil {
		return time.Time{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

func (s *Subscriber) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// Run connects and dispatches events until ctx is cancelled. Connection
// failures are logged and retried; handle is called from a single goroutine.
func (s *Subscriber) Run(ctx context.Context, instanceName string, handle func(MessageEvent)) error {
	backoff := time.Second
	for {
		if err := s.runOnce(ctx, instanceName, handle); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("realtime connection lost, reconnecting", "error", err, "backoff", backoff.String())
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (s *Subscriber) runOnce(ctx context.Context, instanceName string, handle func(MessageEvent)) error {
	token, err := s.tokens.Token(instanceName)
	if err != nil {
		return err
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := s.dialer.DialContext(ctx, s.url, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()

	sub := map[string]any{
		"action": "subscribe",
		"table":  "ticket_messages",
		"event":  "INSERT",
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	s.logger.Info("realtime subscription established", "url", s.url, "instance", instanceName)

	// Unblock ReadMessage when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}
		s.touch()

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.logger.Warn("realtime frame not JSON, skipping", "error", err)
			continue
		}
		if env.Event != "INSERT" || env.Table != "ticket_messages" {
			continue
		}
		var ev MessageEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			s.logger.Warn("realtime payload malformed, skipping", "error", err)
			continue
		}
		handle(ev)
	}
}
