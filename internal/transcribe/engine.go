// Package transcribe obtains trustworthy transcripts for audio buffers of
// loosely known container format.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/atendezap/atendezap/internal/audio"
	"github.com/atendezap/atendezap/pkg/logging"
)

var engineTracer = otel.Tracer("atendezap.internal.transcribe.engine")

// ErrAllAttemptsFailed indicates every provider call errored at the HTTP
// layer; distinct from "no speech found", which is a non-error outcome.
var ErrAllAttemptsFailed = errors.New("transcribe: all speech attempts failed")

// speechClient is the provider surface the engine drives.
type speechClient interface {
	Transcribe(ctx context.Context, data []byte, format audio.Format, apiKey string) (*SpeechResult, error)
}

// fallbackOrder is tried after the detected format.
var fallbackOrder = []audio.Format{audio.FormatOgg, audio.FormatWebm, audio.FormatMp3, audio.FormatWav}

// Result is the engine's outcome. Success false with no error means the
// provider answered but produced no usable speech; callers keep the audio.
type Result struct {
	Text       string
	Language   string
	Duration   float64
	Format     audio.Format
	Segments   []Segment
	Confidence float64
	Success    bool
}

// Engine iterates candidate container declarations until the provider
// yields a plausible transcript.
type Engine struct {
	client         speechClient
	logger         *logging.Logger
	attemptTimeout time.Duration
}

func NewEngine(client speechClient, logger *logging.Logger, attemptTimeout time.Duration) *Engine {
	if client == nil {
		panic("transcribe: speech client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if attemptTimeout <= 0 {
		attemptTimeout = 25 * time.Second
	}
	return &Engine{client: client, logger: logger, attemptTimeout: attemptTimeout}
}

// Candidates builds the ordered, de-duplicated format list for a detection.
func Candidates(detected audio.Format) []audio.Format {
	out := []audio.Format{detected}
	for _, f := range fallbackOrder {
		if f != detected {
			out = append(out, f)
		}
	}
	return out
}

// Transcribe runs the candidate loop for one buffer.
func (e *Engine) Transcribe(ctx context.Context, data []byte, detected audio.Format, apiKey, correlationID string) (*Result, error) {
	ctx, span := engineTracer.Start(ctx, "transcribe.engine")
	defer span.End()
	span.SetAttributes(
		attribute.String("atendezap.correlation_id", correlationID),
		attribute.String("atendezap.detected_format", string(detected)),
		attribute.Int("atendezap.audio_bytes", len(data)),
	)

	var lastErr error
	attempted := 0
	answered := false // at least one attempt got an HTTP-level response

	for _, format := range Candidates(detected) {
		attempted++
		attemptCtx, cancel := context.WithTimeout(ctx, e.attemptTimeout)
		speech, err := e.client.Transcribe(attemptCtx, data, format, apiKey)
		cancel()

		if err != nil {
			lastErr = err
			e.logger.Warn("speech attempt failed",
				"format", format, "error", err, "correlation_id", correlationID)
			continue
		}
		answered = true

		if !ValidTranscript(speech.Text) {
			e.logger.Info("speech attempt returned invalid transcript",
				"format", format, "correlation_id", correlationID)
			continue
		}

		e.logger.Info("transcription accepted",
			"format", format, "attempts", attempted, "correlation_id", correlationID)
		return &Result{
			Text:       speech.Text,
			Language:   speech.Language,
			Duration:   speech.Duration,
			Format:     format,
			Segments:   speech.Segments,
			Confidence: confidence(speech.Segments),
			Success:    true,
		}, nil
	}

	if !answered && lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllAttemptsFailed, lastErr)
	}
	// Some attempt answered but never with usable speech: an expected
	// outcome, not a fault. The caller keeps the audio.
	e.logger.Info("no valid transcription after exhausting formats",
		"attempts", attempted, "correlation_id", correlationID)
	return &Result{Format: detected, Success: false}, nil
}

// confidence approximates transcript confidence from segment log
// probabilities; zero when the provider sent no segments.
func confidence(segments []Segment) float64 {
	if len(segments) == 0 {
		return 0
	}
	total := 0.0
	for _, s := range segments {
		p := math.Exp(s.AvgLogprob)
		if p > 1 {
			p = 1
		}
		total += p
	}
	return total / float64(len(segments))
}
