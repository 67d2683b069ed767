package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestIngestionMetricsObserve(t *testing.T) {
	m := NewIngestionMetrics(prometheus.NewRegistry())
	m.ObserveInbound("messages.upsert", "ok")
	m.ObserveWebhookLatency("messages.upsert", 0.5)
	m.ObserveAudioProcessed("completed")
	m.ObserveTranscriptionAttempt("ogg", "success")
}

func TestIngestionMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewIngestionMetrics(reg)
	m.ObserveAudioProcessed("failed")
}

func TestIngestionMetricsNilSafe(t *testing.T) {
	var m *IngestionMetrics
	m.ObserveInbound("event", "status")
	m.ObserveWebhookLatency("event", 0.1)
	m.ObserveAudioProcessed("completed")
	m.ObserveTranscriptionAttempt("ogg", "no_speech")
}
