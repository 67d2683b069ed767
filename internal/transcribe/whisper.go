package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/atendezap/atendezap/internal/audio"
)

const defaultWhisperURL = "https://api.openai.com/v1/audio/transcriptions"

// Segment is one timed slice of a verbose transcription response.
type Segment struct {
	ID         int     `json:"id"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	AvgLogprob float64 `json:"avg_logprob"`
}

// SpeechResult is a raw provider response for one attempt.
type SpeechResult struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Segments []Segment `json:"segments"`
}

// WhisperClient submits audio to the OpenAI transcription endpoint.
type WhisperClient struct {
	baseURL    string
	model      string
	language   string
	httpClient *http.Client
}

// WhisperOption customizes the client.
type WhisperOption func(*WhisperClient)

// WithBaseURL overrides the provider endpoint (used in tests).
func WithBaseURL(url string) WhisperOption {
	return func(c *WhisperClient) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithModel overrides the transcription model.
func WithModel(model string) WhisperOption {
	return func(c *WhisperClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithLanguage sets the target language hint.
func WithLanguage(lang string) WhisperOption {
	return func(c *WhisperClient) {
		if lang != "" {
			c.language = lang
		}
	}
}

func NewWhisperClient(opts ...WhisperOption) *WhisperClient {
	c := &WhisperClient{
		baseURL:    defaultWhisperURL,
		model:      "whisper-1",
		language:   "pt",
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe uploads the buffer declared as the given format. The provider
// is sensitive to the declared container type, so callers retry the same
// bytes under different declared formats.
func (c *WhisperClient) Transcribe(ctx context.Context, data []byte, format audio.Format, apiKey string) (*SpeechResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="audio.%s"`, format))
	header.Set("Content-Type", audio.MimeFor(format))
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("transcribe: build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("transcribe: write upload: %w", err)
	}

	_ = writer.WriteField("model", c.model)
	_ = writer.WriteField("language", c.language)
	_ = writer.WriteField("response_format", "verbose_json")
	_ = writer.WriteField("temperature", "0")
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("transcribe: finish upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, &body)
	if err != nil {
		return nil, fmt.Errorf("transcribe: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcribe: speech request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("transcribe: speech provider returned %d: %s",
			resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var result SpeechResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("transcribe: decode speech response: %w", err)
	}
	return &result, nil
}

// DownloadAudio fetches a remote audio resource with the configured
// user-agent, used when the transcription endpoint is handed a URL.
func DownloadAudio(ctx context.Context, client *http.Client, url, userAgent string) ([]byte, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("transcribe: build download request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcribe: download audio: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("transcribe: audio download returned %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transcribe: read audio download: %w", err)
	}
	return data, nil
}
