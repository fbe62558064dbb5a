/*
Package metrics exposes Prometheus counters for authentication and pad activity.

All methods are safe to call on a nil *Metrics, which is what the server uses
when metrics are disabled.
*/
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector registered by the server.
type Metrics struct {
	authnDecisions     *prometheus.CounterVec
	accessResults      *prometheus.CounterVec
	sessionTransitions *prometheus.CounterVec
	redirectSanitized  *prometheus.CounterVec
	padConnections     prometheus.Gauge
	padChanges         *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		authnDecisions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "epguest_authn_decisions_total",
				Help: "Authentication hook decisions by plugin and outcome",
			},
			[]string{"plugin", "decision"}, // decision: "defer", "accept", "deny"
		),
		accessResults: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "epguest_access_checks_total",
				Help: "Access pipeline results",
			},
			[]string{"result"}, // "preauthorized", "granted", "challenged", "forbidden"
		),
		sessionTransitions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "epguest_session_transitions_total",
				Help: "Guest session transitions by endpoint and status",
			},
			[]string{"endpoint", "status"}, // status: "ok", "error"
		),
		redirectSanitized: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "epguest_redirect_sanitized_total",
				Help: "Redirect targets processed by the sanitizer",
			},
			[]string{"outcome"}, // "rewritten", "default"
		),
		padConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "epguest_pad_connections",
				Help: "Currently connected pad editors",
			},
		),
		padChanges: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "epguest_pad_changes_total",
				Help: "Pad change submissions by result",
			},
			[]string{"result"}, // "applied", "rejected"
		),
	}
}

// AuthnDecision counts one authenticator result.
func (m *Metrics) AuthnDecision(plugin, decision string) {
	if m == nil {
		return
	}
	m.authnDecisions.WithLabelValues(plugin, decision).Inc()
}

// AccessResult counts one access pipeline outcome.
func (m *Metrics) AccessResult(result string) {
	if m == nil {
		return
	}
	m.accessResults.WithLabelValues(result).Inc()
}

// SessionTransition counts one login, forceauth or logout request.
func (m *Metrics) SessionTransition(endpoint string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.sessionTransitions.WithLabelValues(endpoint, status).Inc()
}

// RedirectSanitized counts one sanitizer call; defaulted is true when the
// input was empty or malformed.
func (m *Metrics) RedirectSanitized(defaulted bool) {
	if m == nil {
		return
	}
	outcome := "rewritten"
	if defaulted {
		outcome = "default"
	}
	m.redirectSanitized.WithLabelValues(outcome).Inc()
}

// PadConnected adjusts the connected editors gauge by delta.
func (m *Metrics) PadConnected(delta int) {
	if m == nil {
		return
	}
	m.padConnections.Add(float64(delta))
}

// PadChange counts one change submission.
func (m *Metrics) PadChange(applied bool) {
	if m == nil {
		return
	}
	result := "applied"
	if !applied {
		result = "rejected"
	}
	m.padChanges.WithLabelValues(result).Inc()
}
