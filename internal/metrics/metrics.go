// Package metrics exposes the process counters over Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ParseResults counts parses by outcome ("ok" or "unrecognized").
	ParseResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voicenav",
		Subsystem: "intent",
		Name:      "parse_results_total",
		Help:      "Parse outcomes by result.",
	}, []string{"result"})

	// EnrichmentDegradations counts enrichment calls that fell back to
	// the primary path, by reason ("unreachable", "error", "malformed").
	EnrichmentDegradations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voicenav",
		Subsystem: "nlp",
		Name:      "enrichment_degradations_total",
		Help:      "Enrichment requests that degraded to the primary path.",
	}, []string{"reason"})

	// Dispatches counts dispatched commands by canonical action.
	Dispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voicenav",
		Subsystem: "dispatch",
		Name:      "commands_total",
		Help:      "Dispatched commands by action.",
	}, []string{"action"})

	// Injections counts injection attempts by outcome ("injected",
	// "deduplicated", "failed", "restricted").
	Injections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voicenav",
		Subsystem: "inject",
		Name:      "attempts_total",
		Help:      "Injection attempts by outcome.",
	}, []string{"outcome"})

	// ListenerRestarts counts recognition session restarts.
	ListenerRestarts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "voicenav",
		Subsystem: "listener",
		Name:      "restarts_total",
		Help:      "Recognition sessions restarted after an error.",
	})

	// FollowUpResolutions counts follow-up outcomes ("resolved",
	// "out_of_range", "expired").
	FollowUpResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voicenav",
		Subsystem: "followup",
		Name:      "resolutions_total",
		Help:      "Follow-up number resolutions by outcome.",
	}, []string{"outcome"})
)

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
