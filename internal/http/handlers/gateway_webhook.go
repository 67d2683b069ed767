// Package handlers hosts the HTTP surface: the gateway webhook and the
// transcription function endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/atendezap/atendezap/internal/assistant"
	"github.com/atendezap/atendezap/internal/instance"
	"github.com/atendezap/atendezap/internal/observability/metrics"
	"github.com/atendezap/atendezap/internal/ticketing"
	"github.com/atendezap/atendezap/internal/webhook"
	"github.com/atendezap/atendezap/pkg/logging"
)

var webhookTracer = otel.Tracer("atendezap.internal.http.handlers.webhook")

type instanceResolver interface {
	Resolve(ctx context.Context, name string) (*instance.Instance, error)
}

type connectionUpdater interface {
	UpdateConnectionStatus(ctx context.Context, instanceID, status string) error
}

type ingestPipeline interface {
	Process(ctx context.Context, msg webhook.Message, clientID, instanceID uuid.UUID) (*ticketing.Result, error)
}

type rawRecorder interface {
	InsertRawLog(ctx context.Context, messageID, instanceID, event string, payload []byte) error
}

type aiTrigger interface {
	Maybe(ctx context.Context, fromMe bool, req assistant.Request) bool
}

// GatewayWebhookHandler receives inbound events from the WhatsApp gateway
// and drives them through resolution, normalization and ticketing.
type GatewayWebhookHandler struct {
	resolver    instanceResolver
	connections connectionUpdater
	pipeline    ingestPipeline
	rawLog      rawRecorder
	trigger     aiTrigger
	metrics     *metrics.IngestionMetrics
	logger      *logging.Logger
}

type GatewayWebhookConfig struct {
	Resolver    instanceResolver
	Connections connectionUpdater
	Pipeline    ingestPipeline
	RawLog      rawRecorder
	Trigger     aiTrigger
	Metrics     *metrics.IngestionMetrics
	Logger      *logging.Logger
}

func NewGatewayWebhookHandler(cfg GatewayWebhookConfig) *GatewayWebhookHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &GatewayWebhookHandler{
		resolver:    cfg.Resolver,
		connections: cfg.Connections,
		pipeline:    cfg.Pipeline,
		rawLog:      cfg.RawLog,
		trigger:     cfg.Trigger,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
	}
}

// Status answers the gateway's liveness probe.
func (h *GatewayWebhookHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "active",
		"service":   "atendezap-webhook",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Receive processes one POSTed gateway event.
func (h *GatewayWebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	ctx, span := webhookTracer.Start(r.Context(), "webhook.receive")
	defer span.End()
	start := time.Now()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON payload", nil)
		return
	}
	var payload webhook.EventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.metrics.ObserveInbound("invalid", "bad_request")
		h.respondError(w, http.StatusBadRequest, "Invalid JSON payload", map[string]any{"details": err.Error()})
		return
	}
	span.SetAttributes(attribute.String("webhook.event", payload.Event))

	if payload.Event != webhook.EventMessagesUpsert {
		h.acknowledgeNonMessage(ctx, payload)
		h.metrics.ObserveInbound(payload.Event, "ignored")
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Webhook received but not a message event",
			"event":   payload.Event,
		})
		return
	}

	if payload.Instance.Name == "" || payload.Data == nil {
		h.metrics.ObserveInbound(payload.Event, "bad_request")
		h.respondError(w, http.StatusBadRequest, "Insufficient data", map[string]any{
			"instanceName": payload.Instance.Name,
		})
		return
	}

	inst, err := h.resolver.Resolve(ctx, payload.Instance.Name)
	if errors.Is(err, instance.ErrNotFound) {
		h.metrics.ObserveInbound(payload.Event, "not_found")
		h.respondError(w, http.StatusNotFound, "Instance not found", map[string]any{
			"instanceName": payload.Instance.Name,
		})
		return
	}
	if err != nil {
		h.logger.Error("instance resolution failed", "instance", payload.Instance.Name, "error", err)
		h.metrics.ObserveInbound(payload.Event, "error")
		h.respondError(w, http.StatusInternalServerError, "Internal server error", nil)
		return
	}

	msg := webhook.Normalize(payload.Data)

	if h.rawLog != nil {
		if err := h.rawLog.InsertRawLog(ctx, msg.MessageID, inst.InstanceID, payload.Event, body); err != nil {
			h.logger.Warn("raw log insert failed", "message_id", msg.MessageID, "error", err)
		}
	}

	result, err := h.pipeline.Process(ctx, msg, inst.ClientID, inst.ID)
	if err != nil {
		h.logger.Error("ingestion pipeline failed",
			"message_id", msg.MessageID,
			"instance", payload.Instance.Name,
			"error", err)
		h.metrics.ObserveInbound(payload.Event, "error")
		h.respondError(w, http.StatusInternalServerError, "Internal server error", map[string]any{
			"messageId": msg.MessageID,
		})
		return
	}

	// AI dispatch is decoupled from the response: its failures never reach
	// the gateway, which would otherwise retry a durably-stored message.
	if h.trigger != nil {
		h.trigger.Maybe(ctx, msg.FromMe, assistant.Request{
			TicketID:     result.TicketID,
			ClientID:     inst.ClientID,
			InstanceID:   inst.ID,
			Content:      msg.Content,
			CustomerName: msg.ContactName,
			Phone:        msg.PhoneNumber,
			ChatID:       msg.ChatID,
		})
	}

	h.metrics.ObserveInbound(payload.Event, "ok")
	h.metrics.ObserveWebhookLatency(payload.Event, time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "Message processed successfully",
		"instanceName": payload.Instance.Name,
		"messageId":    msg.MessageID,
		"clientId":     inst.ClientID,
		"ticketId":     result.TicketID,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

// acknowledgeNonMessage records connection-state changes as a best effort;
// nothing here may fail the acknowledgement.
func (h *GatewayWebhookHandler) acknowledgeNonMessage(ctx context.Context, payload webhook.EventPayload) {
	if h.connections == nil {
		return
	}
	switch payload.Event {
	case webhook.EventConnectionUpdate, webhook.EventQRCodeUpdated:
		if payload.Instance.Name == "" || payload.Instance.ConnectionStatus == "" {
			return
		}
		if err := h.connections.UpdateConnectionStatus(ctx, payload.Instance.Name, payload.Instance.ConnectionStatus); err != nil {
			h.logger.Warn("connection status update failed",
				"instance", payload.Instance.Name,
				"status", payload.Instance.ConnectionStatus,
				"error", err)
		}
	}
}

func (h *GatewayWebhookHandler) respondError(w http.ResponseWriter, status int, msg string, extra map[string]any) {
	body := map[string]any{"error": msg, "success": false}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
