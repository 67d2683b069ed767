package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/atendezap/atendezap/internal/audio"
	"github.com/atendezap/atendezap/pkg/logging"
)

// transcriptWriter persists an accepted transcript onto the message row.
type transcriptWriter interface {
	SaveTranscription(ctx context.Context, messageID, transcript string) error
}

// Handler exposes the transcription function over HTTP for
// service-to-service calls.
type Handler struct {
	engine        *Engine
	writer        transcriptWriter
	defaultAPIKey string
	userAgent     string
	httpClient    *http.Client
	logger        *logging.Logger
}

func NewHandler(engine *Engine, writer transcriptWriter, defaultAPIKey, userAgent string, logger *logging.Logger) *Handler {
	if engine == nil {
		panic("transcribe: engine required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		engine:        engine,
		writer:        writer,
		defaultAPIKey: defaultAPIKey,
		userAgent:     userAgent,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		logger:        logger,
	}
}

type transcribeRequest struct {
	Audio        string `json:"audio,omitempty"`
	AudioURL     string `json:"audioUrl,omitempty"`
	OpenAIAPIKey string `json:"openaiApiKey,omitempty"`
	MessageID    string `json:"messageId,omitempty"`
}

type transcribeResponse struct {
	Text            *string   `json:"text"`
	Language        string    `json:"language,omitempty"`
	Duration        float64   `json:"duration,omitempty"`
	Segments        []Segment `json:"segments,omitempty"`
	AudioFormat     string    `json:"audioFormat,omitempty"`
	Confidence      float64   `json:"confidence,omitempty"`
	Success         bool      `json:"success"`
	ShouldSaveAudio bool      `json:"shouldSaveAudio,omitempty"`
	Error           string    `json:"error,omitempty"`
	Details         string    `json:"details,omitempty"`
	MessageID       string    `json:"messageId,omitempty"`
	Timestamp       string    `json:"timestamp"`
}

// Transcribe handles POST requests carrying base64 audio or an audio URL.
func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body", err.Error(), req.MessageID)
		return
	}

	apiKey := req.OpenAIAPIKey
	if apiKey == "" {
		apiKey = h.defaultAPIKey
	}
	if apiKey == "" {
		h.writeError(w, http.StatusBadRequest, "missing OpenAI API key", "", req.MessageID)
		return
	}
	if req.Audio == "" && req.AudioURL == "" {
		h.writeError(w, http.StatusBadRequest, "one of audio or audioUrl is required", "", req.MessageID)
		return
	}

	if req.Audio == "" {
		data, err := DownloadAudio(r.Context(), h.httpClient, req.AudioURL, h.userAgent)
		if err != nil {
			h.writeError(w, http.StatusBadGateway, "failed to download audio", err.Error(), req.MessageID)
			return
		}
		h.respondFromBytes(r.Context(), w, data, apiKey, req.MessageID)
		return
	}

	decoded, err := audio.DecodeBase64(req.Audio)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid audio payload", err.Error(), req.MessageID)
		return
	}
	h.respondFromBytes(r.Context(), w, decoded, apiKey, req.MessageID)
}

func (h *Handler) respondFromBytes(ctx context.Context, w http.ResponseWriter, data []byte, apiKey, messageID string) {
	detection := audio.DetectFormat(data)
	result, err := h.engine.Transcribe(ctx, data, detection.Format, apiKey, messageID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrAllAttemptsFailed) {
			status = http.StatusBadGateway
		}
		h.writeError(w, status, "transcription failed", err.Error(), messageID)
		return
	}

	if !result.Success {
		// Deliberately 200: "no speech found" is an expected outcome.
		writeJSON(w, http.StatusOK, transcribeResponse{
			Text:            nil,
			Error:           "no valid transcription obtained",
			Success:         false,
			ShouldSaveAudio: true,
			MessageID:       messageID,
			Timestamp:       time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	if messageID != "" && h.writer != nil {
		// Secondary write path: idempotent with the audio processor's own
		// write, both keyed by message id.
		if err := h.writer.SaveTranscription(ctx, messageID, result.Text); err != nil {
			h.logger.Warn("failed to persist transcript from function",
				"error", err, "message_id", messageID)
		}
	}

	writeJSON(w, http.StatusOK, transcribeResponse{
		Text:        &result.Text,
		Language:    result.Language,
		Duration:    result.Duration,
		Segments:    result.Segments,
		AudioFormat: string(result.Format),
		Confidence:  result.Confidence,
		Success:     true,
		MessageID:   messageID,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg, details, messageID string) {
	h.logger.Warn("transcription request rejected", "status", status, "error", msg, "details", details)
	writeJSON(w, status, transcribeResponse{
		Error:     msg,
		Details:   details,
		Success:   false,
		MessageID: messageID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
