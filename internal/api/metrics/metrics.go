// Package metrics defines and registers the gateway's custom Prometheus
// metrics. It is the single source of truth for metric names, labels, and
// help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "portal"

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionDerivationsTotal counts session derivations.
// Labels:
//   - trigger: "mount", "storage", "focus", "login"
//   - outcome: "absent", "valid", "malformed", "expired"
var SessionDerivationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_derivations_total",
		Help:      "Total number of session derivations, by trigger and outcome.",
	},
	[]string{"trigger", "outcome"},
)

// SessionStreamsActive tracks open session event streams (one per tab).
var SessionStreamsActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "session_streams_active",
		Help:      "Current number of open session event streams.",
	},
)

// ── Route metrics ─────────────────────────────────────────────────────────────

// RouteDecisionsTotal counts gate decisions.
// Labels:
//   - route:    matched rule pattern, or "unmatched"
//   - decision: "allow" or "redirect"
var RouteDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "route_decisions_total",
		Help:      "Total number of route authorization decisions.",
	},
	[]string{"route", "decision"},
)

// ── Upstream metrics ──────────────────────────────────────────────────────────

// UpstreamUnauthorizedTotal counts forwarded calls the API rejected with 401,
// each of which clears the profile's credential.
var UpstreamUnauthorizedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_unauthorized_total",
		Help:      "Forwarded API calls rejected with 401.",
	},
)
