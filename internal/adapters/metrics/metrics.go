package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bnema/crew/internal/domain"
	"github.com/bnema/crew/internal/ports"
)

// Metrics provides observability for the gateway and the portal.
type Metrics struct {
	registry *prometheus.Registry

	// Gateway outcomes by role and kind
	RequestOutcome *prometheus.CounterVec

	// Gateway round-trip latency by role
	RequestLatency *prometheus.HistogramVec

	// Route guard revocations by role
	SessionRevocations *prometheus.CounterVec
}

var _ ports.OutcomeRecorder = (*Metrics)(nil)

// New creates a Metrics instance registered on its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		RequestOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crew_gateway_outcomes_total",
			Help: "Total API gateway outcomes by role and kind",
		}, []string{"role", "kind"}), // kind: "success", "domain_error", "auth_error"

		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crew_gateway_request_duration_seconds",
			Help:    "Duration of API gateway calls including pacing",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"role"}),

		SessionRevocations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crew_session_revocations_total",
			Help: "Sessions revoked while a protected view was open",
		}, []string{"role"}),
	}
}

// RecordOutcome records one classified gateway call.
func (m *Metrics) RecordOutcome(role domain.Role, kind domain.OutcomeKind, elapsed time.Duration) {
	if m != nil {
		m.RequestOutcome.WithLabelValues(string(role), string(kind)).Inc()
		m.RequestLatency.WithLabelValues(string(role)).Observe(elapsed.Seconds())
	}
}

// RecordRevocation records a session that stopped being authenticated.
func (m *Metrics) RecordRevocation(role domain.Role) {
	if m != nil {
		m.SessionRevocations.WithLabelValues(string(role)).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
