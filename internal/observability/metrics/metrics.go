package metrics

import "github.com/prometheus/client_golang/prometheus"

// IngestionMetrics exposes counters/histograms for webhook ingestion and
// audio processing.
type IngestionMetrics struct {
	inboundTotal       *prometheus.CounterVec
	webhookLatency     *prometheus.HistogramVec
	audioProcessed     *prometheus.CounterVec
	transcribeAttempts *prometheus.CounterVec
}

func NewIngestionMetrics(reg prometheus.Registerer) *IngestionMetrics {
	m := &IngestionMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atendezap",
			Subsystem: "ingestion",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound gateway webhooks",
		}, []string{"event_type", "status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "atendezap",
			Subsystem: "ingestion",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of gateway webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
		audioProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atendezap",
			Subsystem: "audio",
			Name:      "processed_total",
			Help:      "Audio messages processed by outcome",
		}, []string{"outcome"}),
		transcribeAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "atendezap",
			Subsystem: "audio",
			Name:      "transcription_attempts_total",
			Help:      "Transcription attempts by format and result",
		}, []string{"format", "result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.webhookLatency, m.audioProcessed, m.transcribeAttempts)
	return m
}

func (m *IngestionMetrics) ObserveInbound(eventType, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(eventType, status).Inc()
}

func (m *IngestionMetrics) ObserveWebhookLatency(eventType string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(eventType).Observe(seconds)
}

func (m *IngestionMetrics) ObserveAudioProcessed(outcome string) {
	if m == nil {
		return
	}
	m.audioProcessed.WithLabelValues(outcome).Inc()
}

func (m *IngestionMetrics) ObserveTranscriptionAttempt(format, result string) {
	if m == nil {
		return
	}
	m.transcribeAttempts.WithLabelValues(format, result).Inc()
}
