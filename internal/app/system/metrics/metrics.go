// Package metrics declares the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "soar"

// Outcome label values.
const (
	OutcomeSuccess   = "success"
	OutcomeForbidden = "forbidden"
	OutcomeBoundary  = "boundary"
	OutcomeConflict  = "conflict"
	OutcomeNotFound  = "not_found"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)

var (
	// RoleChanges counts membership role transitions by action and outcome.
	RoleChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "membership",
		Name:      "role_changes_total",
		Help:      "The total number of membership role changes attempted",
	}, []string{"action", "outcome"})

	// ProviderRequests counts calls to the external auth provider.
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth_provider",
		Name:      "requests_total",
		Help:      "The total number of auth provider requests",
	}, []string{"operation", "outcome"})

	// Logins counts login attempts.
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "identity",
		Name:      "logins_total",
		Help:      "The total number of login attempts",
	}, []string{"outcome"})

	// Registrations counts registration attempts.
	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "identity",
		Name:      "registrations_total",
		Help:      "The total number of registration attempts",
	}, []string{"outcome"})

	// OrganizationUpdates counts organization profile updates.
	OrganizationUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "organization",
		Name:      "updates_total",
		Help:      "The total number of organization profile updates",
	}, []string{"source", "outcome"})
)

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
