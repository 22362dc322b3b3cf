// Package metrics provides Prometheus instrumentation for the moderation
// service. It exposes counters for decisions, reloads and enforcement, a
// gauge for catalog size, and a histogram for evaluation latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// DecisionsTotal counts evaluated messages, labeled by decision reason:
	// "none", "already_suspended" or "term_matched".
	DecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatfilter_decisions_total",
		Help: "Total number of moderation decisions",
	}, []string{"reason"})

	// PunishmentsTotal counts punishments handed out, labeled by kind.
	PunishmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatfilter_punishments_total",
		Help: "Total number of punishments by kind",
	}, []string{"kind"}) // kind = "block_only", "mute", "account_suspend"

	// EnforcementFailures counts account suspensions or disconnects that failed.
	EnforcementFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatfilter_enforcement_failures_total",
		Help: "Total number of failed account suspensions or disconnects",
	})

	// EvaluateLatency records moderation check latency in seconds.
	EvaluateLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chatfilter_evaluate_latency_seconds",
		Help:    "Moderation check processing latency in seconds",
		Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
	})

	// CatalogTerms tracks the number of terms in the active catalog.
	CatalogTerms = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatfilter_catalog_terms",
		Help: "Current number of prohibited terms in the catalog",
	})

	// ReloadSkippedTotal counts catalog entries dropped during reloads.
	ReloadSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatfilter_reload_skipped_total",
		Help: "Total number of malformed catalog entries skipped on reload",
	})

	// SuspendedUsers tracks stored mute records, including expired ones not
	// yet evicted.
	SuspendedUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatfilter_suspension_records",
		Help: "Current number of suspension records held in memory",
	})
)

func init() {
	prometheus.MustRegister(
		DecisionsTotal,
		PunishmentsTotal,
		EnforcementFailures,
		EvaluateLatency,
		CatalogTerms,
		ReloadSkippedTotal,
		SuspendedUsers,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
