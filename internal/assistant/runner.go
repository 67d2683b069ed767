package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPRunner posts assistant requests to the external processing service.
type HTTPRunner struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPRunner(baseURL, apiKey string, client *http.Client) *HTTPRunner {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPRunner{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: client,
	}
}

type runnerPayload struct {
	TicketID     string          `json:"ticketId"`
	ClientID     string          `json:"clientId"`
	InstanceID   string          `json:"instanceId"`
	Content      string          `json:"content"`
	CustomerName string          `json:"customerName"`
	Phone        string          `json:"phone"`
	ChatID       string          `json:"chatId"`
	Assistant    assistantInfo   `json:"assistant"`
	Settings     json.RawMessage `json:"settings,omitempty"`
}

type assistantInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

// Run submits one assistant invocation and waits for acknowledgement.
func (r *HTTPRunner) Run(ctx context.Context, wiring *Wiring, req Request) error {
	payload := runnerPayload{
		TicketID:     req.TicketID.String(),
		ClientID:     req.ClientID.String(),
		InstanceID:   req.InstanceID.String(),
		Content:      req.Content,
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
		ChatID:       req.ChatID,
		Assistant: assistantInfo{
			ID:     wiring.Assistant.ID.String(),
			Name:   wiring.Assistant.Name,
			Prompt: wiring.Assistant.Prompt,
			Model:  wiring.Assistant.Model,
		},
		Settings: wiring.Assistant.Settings,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("assistant: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/process", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("assistant: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("assistant: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("assistant: collaborator returned %d: %s",
			resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
