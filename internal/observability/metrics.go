// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"solana-sniper/internal/domain"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "solana_sniper"

// Metrics holds all Prometheus metrics for a session. It implements the
// observer interfaces of the endpoint pool, the risk screen, the position
// manager and the session.
type Metrics struct {
	registry *prometheus.Registry

	// Intake metrics
	CandidatesDetected prometheus.Counter
	CandidatesDropped  prometheus.Counter

	// Screening metrics
	VerdictsIssued   *prometheus.CounterVec
	ChecksCompleted  *prometheus.CounterVec
	ScreeningLatency prometheus.Histogram

	// Position metrics
	PositionsOpened  prometheus.Counter
	PositionsClosed  *prometheus.CounterVec
	DisposalFailures prometheus.Counter
	ActiveGauge      prometheus.Gauge
	HoldDuration     prometheus.Histogram
	RealizedPnL      prometheus.Histogram

	// RPC metrics
	EndpointCalls      *prometheus.CounterVec
	RateLimitResponses *prometheus.CounterVec

	// Health metrics
	SessionStarted prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Intake metrics
		CandidatesDetected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "candidates_detected_total",
			Help:      "Total number of candidate events received",
		}),
		CandidatesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "candidates_dropped_total",
			Help:      "Total number of candidates dropped because every slot was taken",
		}),

		// Screening metrics
		VerdictsIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "screening",
			Name:      "verdicts_total",
			Help:      "Total number of screening verdicts by outcome",
		}, []string{"outcome"}),
		ChecksCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "screening",
			Name:      "checks_total",
			Help:      "Total number of risk checks by name and outcome",
		}, []string{"check", "outcome"}),
		ScreeningLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "screening",
			Name:      "latency_seconds",
			Help:      "Time to reach a screening verdict in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),

		// Position metrics
		PositionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "opened_total",
			Help:      "Total number of positions with an acknowledged acquisition",
		}),
		PositionsClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "terminal_total",
			Help:      "Total number of positions reaching a terminal state by reason",
		}, []string{"state", "reason"}),
		DisposalFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "disposal_failures_total",
			Help:      "Total number of failed disposal attempts",
		}),
		ActiveGauge: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "active",
			Help:      "Current number of non-terminal positions",
		}),
		HoldDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "hold_duration_seconds",
			Help:      "Time from acquisition to terminal state in seconds",
			Buckets:   []float64{1, 2, 5, 10, 15, 30, 60, 120, 300},
		}),
		RealizedPnL: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "pnl_percent",
			Help:      "Realized profit and loss of closed positions in percent",
			Buckets:   []float64{-50, -25, -15, -10, -5, 0, 5, 10, 25, 50, 100},
		}),

		// RPC metrics
		EndpointCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "endpoint_calls_total",
			Help:      "Total number of calls routed to each endpoint",
		}, []string{"endpoint"}),
		RateLimitResponses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "endpoint_rate_limited_total",
			Help:      "Total number of rate-limit responses per endpoint",
		}, []string{"endpoint"}),

		// Health metrics
		SessionStarted: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "session_start_timestamp",
			Help:      "Unix timestamp of the session start",
		}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// MarkStarted records the session start time.
func (m *Metrics) MarkStarted(t time.Time) {
	m.SessionStarted.Set(float64(t.Unix()))
}

// CandidateDetected increments the detected counter.
func (m *Metrics) CandidateDetected() {
	m.CandidatesDetected.Inc()
}

// CandidateDropped increments the dropped counter.
func (m *Metrics) CandidateDropped() {
	m.CandidatesDropped.Inc()
}

// ActivePositions sets the active position gauge.
func (m *Metrics) ActivePositions(n int) {
	m.ActiveGauge.Set(float64(n))
}

// CheckCompleted records one risk check outcome.
func (m *Metrics) CheckCompleted(check string, outcome domain.CheckOutcome) {
	m.ChecksCompleted.WithLabelValues(check, string(outcome)).Inc()
}

// VerdictIssued records a screening verdict and its latency.
func (m *Metrics) VerdictIssued(accepted bool, latency time.Duration) {
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	m.VerdictsIssued.WithLabelValues(outcome).Inc()
	m.ScreeningLatency.Observe(latency.Seconds())
}

// PositionOpened increments the opened counter.
func (m *Metrics) PositionOpened() {
	m.PositionsOpened.Inc()
}

// PositionClosed records a terminal trade.
func (m *Metrics) PositionClosed(r *domain.TradeRecord) {
	m.PositionsClosed.WithLabelValues(string(r.FinalState), string(r.ExitReason)).Inc()
	if r.FinalState == domain.StateClosed {
		m.HoldDuration.Observe(float64(r.HoldDurationMs) / 1000)
		m.RealizedPnL.Observe(r.PnLPercent)
	}
}

// DisposalFailed increments the disposal failure counter.
func (m *Metrics) DisposalFailed() {
	m.DisposalFailures.Inc()
}

// EndpointUsed counts a call routed to endpoint.
func (m *Metrics) EndpointUsed(endpoint string) {
	m.EndpointCalls.WithLabelValues(endpointLabel(endpoint)).Inc()
}

// EndpointRateLimited counts a rate-limit response from endpoint.
func (m *Metrics) EndpointRateLimited(endpoint string) {
	m.RateLimitResponses.WithLabelValues(endpointLabel(endpoint)).Inc()
}

// endpointLabel keeps only the host so API keys in query strings or paths
// never reach the metrics output.
func endpointLabel(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
