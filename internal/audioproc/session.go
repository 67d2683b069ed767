package audioproc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/atendezap/atendezap/internal/assistant"
	"github.com/atendezap/atendezap/internal/audio"
	"github.com/atendezap/atendezap/internal/observability/metrics"
	"github.com/atendezap/atendezap/internal/realtime"
	"github.com/atendezap/atendezap/internal/ticketing"
	"github.com/atendezap/atendezap/internal/transcribe"
	"github.com/atendezap/atendezap/pkg/logging"
)

var tracer = otel.Tracer("atendezap.internal.audioproc")

// Diagnostic markers persisted in the transcription field on failure. The
// conversation view surfaces these instead of dropping the audio.
const (
	diagNoAudioData     = "[Erro: dados de áudio ausentes]"
	diagEmptyTranscript = "[Transcrição vazia - áudio salvo para processamento posterior]"
)

const minBase64Length = 100

// audioStore is the slice of ticketing.Store the processor needs.
type audioStore interface {
	PendingAudio(ctx context.Context, clientID uuid.UUID, limit int) ([]*ticketing.TicketMessage, error)
	GetByMessageID(ctx context.Context, messageID string) (*ticketing.TicketMessage, error)
	ClaimForProcessing(ctx context.Context, messageID string) (bool, error)
	CompleteTranscription(ctx context.Context, messageID, transcript string) error
	FailTranscription(ctx context.Context, messageID, diagnostic string) error
}

type credentialSource interface {
	OpenAIKey(ctx context.Context, clientID uuid.UUID) (string, error)
}

type speechEngine interface {
	Transcribe(ctx context.Context, data []byte, detected audio.Format, apiKey, correlationID string) (*transcribe.Result, error)
}

type assistantTrigger interface {
	Maybe(ctx context.Context, fromMe bool, req assistant.Request) bool
}

type activitySource interface {
	LastActivity() time.Time
}

// Config bounds one processing session.
type Config struct {
	MaxConcurrent  int           // in-flight cap, default 3
	ProcessTimeout time.Duration // abandonment timer, default 120s
	PollInterval   time.Duration // fallback sweep, default 30s
	IdleThreshold  time.Duration // realtime silence before polling engages, default 60s
}

func (c *Config) applyDefaults() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 3
	}
	if c.ProcessTimeout <= 0 {
		c.ProcessTimeout = 120 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
	if c.IdleThreshold <= 0 {
		c.IdleThreshold = 60 * time.Second
	}
}

// Session processes received audio messages for one client/instance pair.
// Two feeds converge on the same claim routine: the realtime listener and
// a polling fallback that engages when realtime goes quiet. The in-memory
// claim set is the intra-process fast path; the persisted processing_status
// compare-and-swap is the cross-process source of truth.
type Session struct {
	clientID   uuid.UUID
	instanceID uuid.UUID

	store    audioStore
	media    MediaFetcher
	creds    credentialSource
	engine   speechEngine
	trigger  assistantTrigger
	realtime activitySource
	metrics  *metrics.IngestionMetrics
	logger   *logging.Logger
	cfg      Config

	started time.Time

	mu       sync.Mutex
	inFlight map[string]*time.Timer
	wg       sync.WaitGroup
}

func NewSession(
	clientID, instanceID uuid.UUID,
	store audioStore,
	media MediaFetcher,
	creds credentialSource,
	engine speechEngine,
	trigger assistantTrigger,
	realtime activitySource,
	m *metrics.IngestionMetrics,
	logger *logging.Logger,
	cfg Config,
) *Session {
	cfg.applyDefaults()
	if logger == nil {
		logger = logging.Default()
	}
	return &Session{
		clientID:   clientID,
		instanceID: instanceID,
		store:      store,
		media:      media,
		creds:      creds,
		engine:     engine,
		trigger:    trigger,
		realtime:   realtime,
		metrics:    m,
		logger:     logger.With("client_id", clientID.String()),
		cfg:        cfg,
		inFlight:   make(map[string]*time.Timer),
	}
}

// InFlight reports how many messages currently hold a local slot.
func (s *Session) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}

// HandleRealtime feeds one pushed ticket-message insert into the claim
// routine. Rows that are outbound, AI-generated, non-audio, not in the
// received state or owned by another client are discarded up front.
func (s *Session) HandleRealtime(ctx context.Context, ev realtime.MessageEvent) {
	if ev.MessageType != "audio" && ev.MessageType != "ptt" {
		return
	}
	if ev.FromMe || ev.IsAIResponse {
		return
	}
	if ev.ProcessingStatus != "" && ev.ProcessingStatus != ticketing.StatusReceived {
		return
	}
	if ev.ClientID != "" && ev.ClientID != s.clientID.String() {
		return
	}

	msg, err := s.store.GetByMessageID(ctx, ev.MessageID)
	if err != nil {
		s.logger.Warn("realtime audio lookup failed", "message_id", ev.MessageID, "error", err)
		return
	}
	s.tryClaim(ctx, msg)
}

// Run drives the polling fallback until ctx is cancelled, then waits for
// in-flight processing to settle.
func (s *Session) Run(ctx context.Context) {
	s.started = time.Now()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.logger.Info("audio processor started",
		"poll_interval", s.cfg.PollInterval.String(),
		"max_concurrent", s.cfg.MaxConcurrent)

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			s.logger.Info("audio processor stopped")
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

// poll sweeps for stranded received rows. It only engages when realtime
// has gone quiet or nothing is in flight, so the push path stays primary.
func (s *Session) poll(ctx context.Context) {
	if !s.shouldPoll() {
		return
	}
	if s.InFlight() >= s.cfg.MaxConcurrent {
		return
	}

	pending, err := s.store.PendingAudio(ctx, s.clientID, 3)
	if err != nil {
		s.logger.Warn("pending audio sweep failed", "error", err)
		return
	}
	for _, msg := range pending {
		// Re-read the persisted status right before claiming: another
		// actor may have taken the row since the sweep query ran.
		current, err := s.store.GetByMessageID(ctx, msg.MessageID)
		if err != nil {
			s.logger.Warn("pending audio revalidation failed", "message_id", msg.MessageID, "error", err)
			continue
		}
		if current.ProcessingStatus != ticketing.StatusReceived {
			s.logger.Info("pending audio already claimed elsewhere", "message_id", msg.MessageID, "status", current.ProcessingStatus)
			continue
		}
		s.tryClaim(ctx, current)
	}
}

func (s *Session) shouldPoll() bool {
	if s.InFlight() == 0 {
		return true
	}
	last := time.Time{}
	if s.realtime != nil {
		last = s.realtime.LastActivity()
	}
	if last.IsZero() {
		last = s.started
	}
	return time.Since(last) >= s.cfg.IdleThreshold
}

// tryClaim takes a local slot for the message and starts processing on its
// own goroutine. Returns false when the cap is reached, the message is
// already in flight, or it is not claimable.
func (s *Session) tryClaim(ctx context.Context, msg *ticketing.TicketMessage) bool {
	if !msg.IsAudio() || msg.FromMe || msg.IsAIResponse {
		return false
	}
	if msg.ProcessingStatus != ticketing.StatusReceived {
		return false
	}

	s.mu.Lock()
	if len(s.inFlight) >= s.cfg.MaxConcurrent {
		s.mu.Unlock()
		s.logger.Info("audio concurrency cap reached, deferring", "message_id", msg.MessageID)
		return false
	}
	if _, dup := s.inFlight[msg.MessageID]; dup {
		s.mu.Unlock()
		return false
	}
	id := msg.MessageID
	timer := time.AfterFunc(s.cfg.ProcessTimeout, func() {
		// Frees the slot only; a late-resolving call may still write its
		// result, which the status-guarded updates tolerate.
		if s.release(id) {
			s.logger.Warn("audio processing abandoned after timeout", "message_id", id, "timeout", s.cfg.ProcessTimeout.String())
		}
	})
	s.inFlight[id] = timer
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release(id)
		s.process(ctx, msg)
	}()
	return true
}

// release frees the local slot and disarms the abandonment timer. Safe to
// call twice; only the first call reports true.
func (s *Session) release(messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer, ok := s.inFlight[messageID]
	if !ok {
		return false
	}
	timer.Stop()
	delete(s.inFlight, messageID)
	return true
}

// process runs the full claim-to-persist body for one message. Every
// failure path lands in a failed persisted status with a diagnostic; none
// propagates past the claim routine.
func (s *Session) process(ctx context.Context, msg *ticketing.TicketMessage) {
	ctx, span := tracer.Start(ctx, "audioproc.process")
	span.SetAttributes(attribute.String("message.id", msg.MessageID))
	defer span.End()

	log := s.logger.With("message_id", msg.MessageID)

	// Flip the persisted status before any network I/O to shrink the race
	// window with other workers and the polling sweep.
	won, err := s.store.ClaimForProcessing(ctx, msg.MessageID)
	if err != nil {
		log.Error("claim update failed", "error", err)
		s.metrics.ObserveAudioProcessed("claim_error")
		return
	}
	if !won {
		log.Info("lost claim to another actor")
		s.metrics.ObserveAudioProcessed("lost_claim")
		return
	}

	transcript, err := s.transcribeMessage(ctx, msg, log)
	if err != nil {
		log.Warn("audio processing failed", "error", err)
		s.metrics.ObserveAudioProcessed("failed")
		s.persistFailure(ctx, msg.MessageID, fmt.Sprintf("[Erro: %v]", err), log)
		return
	}
	if transcript == "" {
		log.Info("no speech found, audio retained")
		s.metrics.ObserveAudioProcessed("no_speech")
		s.persistFailure(ctx, msg.MessageID, diagEmptyTranscript, log)
		return
	}

	if err := s.store.CompleteTranscription(ctx, msg.MessageID, transcript); err != nil {
		log.Error("transcript persist failed", "error", err)
		s.metrics.ObserveAudioProcessed("persist_error")
		return
	}
	s.metrics.ObserveAudioProcessed("completed")
	log.Info("audio transcribed", "chars", len(transcript))

	if s.trigger != nil {
		s.trigger.Maybe(ctx, false, assistant.Request{
			TicketID:   msg.TicketID,
			ClientID:   s.clientID,
			InstanceID: s.instanceID,
			Content:    transcript,
		})
	}
}

// transcribeMessage resolves the audio bytes and credential and runs the
// engine. An empty transcript with nil error means no speech was found.
func (s *Session) transcribeMessage(ctx context.Context, msg *ticketing.TicketMessage, log *logging.Logger) (string, error) {
	payload := msg.AudioBase64
	if msg.MediaKey != "" && msg.MediaURL != "" {
		fetched, err := s.media.FetchBase64(ctx, MediaRequest{
			InstanceID: s.instanceID,
			URL:        msg.MediaURL,
			MediaKey:   msg.MediaKey,
			DirectPath: msg.DirectPath,
			MimeType:   msg.MimeType,
			MediaType:  "audio",
		})
		if err != nil {
			return "", err
		}
		payload = fetched
	}
	if payload == "" {
		return "", fmt.Errorf("dados de áudio ausentes")
	}
	if len(payload) <= minBase64Length {
		return "", fmt.Errorf("payload de áudio muito curto (%d chars)", len(payload))
	}

	apiKey, err := s.creds.OpenAIKey(ctx, s.clientID)
	if err != nil {
		return "", err
	}

	data, err := audio.DecodeBase64(payload)
	if err != nil {
		return "", err
	}
	detection := audio.DetectFormat(data)
	log.Info("audio decoded", "bytes", len(data), "format", string(detection.Format))

	result, err := s.engine.Transcribe(ctx, data, detection.Format, apiKey, msg.MessageID)
	if err != nil {
		return "", err
	}
	if !result.Success {
		return "", nil
	}
	return result.Text, nil
}

func (s *Session) persistFailure(ctx context.Context, messageID, diagnostic string, log *logging.Logger) {
	if err := s.store.FailTranscription(ctx, messageID, diagnostic); err != nil {
		log.Error("failure persist failed", "error", err)
	}
}
