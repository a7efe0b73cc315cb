package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/privata-ai/privata-oss/pkg/detect"
	"github.com/privata-ai/privata-oss/pkg/outputguard"
	"github.com/privata-ai/privata-oss/pkg/policy"
)

// Metrics holds the gateway's Prometheus instruments on a private registry so
// tests and embedded deployments never collide on the global one. Labels
// carry category, action, and kind tags only.
type Metrics struct {
	findingsTotal       *prometheus.CounterVec
	decisionsTotal      *prometheus.CounterVec
	outputFindingsTotal *prometheus.CounterVec
	anomalyScore        prometheus.Histogram
	processDuration     prometheus.Histogram
	sessionsActive      prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all gateway metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		findingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "privata_findings_total",
				Help: "Detection findings by category",
			},
			[]string{"category"},
		),
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "privata_decisions_total",
				Help: "Policy decisions by action and primary reason",
			},
			[]string{"action", "reason"},
		),
		outputFindingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "privata_output_findings_total",
				Help: "Output filter findings by kind",
			},
			[]string{"kind"},
		),
		anomalyScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "privata_anomaly_score",
				Help:    "Distribution of request anomaly scores",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
		),
		processDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "privata_process_duration_seconds",
				Help:    "End-to-end request pipeline latency",
				Buckets: prometheus.DefBuckets,
			},
		),
		sessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "privata_sessions_active",
				Help: "Currently live anonymization sessions",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.findingsTotal,
		m.decisionsTotal,
		m.outputFindingsTotal,
		m.anomalyScore,
		m.processDuration,
		m.sessionsActive,
	)
	return m
}

// RecordAnalysis counts findings per category and observes the anomaly score.
func (m *Metrics) RecordAnalysis(analysis detect.Analysis) {
	for _, f := range analysis.Findings {
		m.findingsTotal.WithLabelValues(string(f.Category)).Inc()
	}
	m.anomalyScore.Observe(float64(analysis.AnomalyScore))
}

// RecordDecision counts a policy outcome. The reason label is the first
// reason code, or "none" for plain allows.
func (m *Metrics) RecordDecision(decision policy.Decision) {
	reason := "none"
	if len(decision.ReasonCodes) > 0 {
		reason = string(decision.ReasonCodes[0])
	}
	m.decisionsTotal.WithLabelValues(string(decision.Action), reason).Inc()
}

// RecordOutputReport counts output filter findings by kind.
func (m *Metrics) RecordOutputReport(report outputguard.Report) {
	for _, f := range report.Findings {
		m.outputFindingsTotal.WithLabelValues(string(f.Kind)).Inc()
	}
}

// ObserveProcessDuration records one request's end-to-end latency in
// seconds.
func (m *Metrics) ObserveProcessDuration(seconds float64) {
	m.processDuration.Observe(seconds)
}

// SetActiveSessions updates the live session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.sessionsActive.Set(float64(n))
}

// Handler exposes the private registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for test assertions.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
