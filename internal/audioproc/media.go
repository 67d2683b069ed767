// Package audioproc claims received audio messages, drives them through
// transcription and hands finished transcripts to the assistant pipeline.
package audioproc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// MediaRequest describes one provider-side encrypted media resource.
type MediaRequest struct {
	InstanceID uuid.UUID `json:"instanceId"`
	URL        string    `json:"url"`
	MediaKey   string    `json:"mediaKey"`
	DirectPath string    `json:"directPath"`
	MimeType   string    `json:"mimetype"`
	MediaType  string    `json:"mediaType"`
}

// MediaFetcher decrypts and downloads E2E-encrypted media through the
// gateway collaborator, returning a base64-encoded payload.
type MediaFetcher interface {
	FetchBase64(ctx context.Context, req MediaRequest) (string, error)
}

// GatewayClient is the HTTP MediaFetcher backed by the gateway's
// media-decrypt endpoint.
type GatewayClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewGatewayClient(baseURL, apiKey string) *GatewayClient {
	return &GatewayClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

var ErrMediaUnavailable = errors.New("audioproc: media unavailable")

func (c *GatewayClient) FetchBase64(ctx context.Context, req MediaRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("audioproc: marshal media request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/media/decrypt", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("audioproc: build media request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("audioproc: fetch media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: gateway returned %d: %s", ErrMediaUnavailable, resp.StatusCode, snippet)
	}

	var decoded struct {
		Base64 string `json:"base64"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("audioproc: decode media response: %w", err)
	}
	if decoded.Base64 == "" {
		return "", fmt.Errorf("%w: gateway returned empty payload", ErrMediaUnavailable)
	}
	return decoded.Base64, nil
}
