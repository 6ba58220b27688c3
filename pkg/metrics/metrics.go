// Package metrics defines the Prometheus collectors shared by the scanning
// pipeline. Collectors are registered on the default registry and exposed by
// the API server's metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultBuckets provides a common set of histogram buckets in seconds that can
// be reused across the application for latency metrics.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10} //nolint: gochecknoglobals

//nolint: gochecknoglobals
var (
	// ProviderRequests counts outbound lookups per provider and outcome
	// (ok, error, rate_limited, timeout).
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mailscan",
		Subsystem: "provider",
		Name:      "requests_total",
		Help:      "Outbound reputation lookups by provider and outcome.",
	}, []string{"provider", "outcome"})

	// ProviderLatency observes the wall time of one full provider check,
	// including polling and fallback attempts.
	ProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mailscan",
		Subsystem: "provider",
		Name:      "check_duration_seconds",
		Help:      "Duration of a full provider check per URL.",
		Buckets:   DefaultBuckets,
	}, []string{"provider"})

	// Verdicts counts normalized verdicts per provider.
	Verdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mailscan",
		Subsystem: "provider",
		Name:      "verdicts_total",
		Help:      "Normalized verdicts by provider.",
	}, []string{"provider", "verdict"})

	// Scans counts completed scan cycles by final decision.
	Scans = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mailscan",
		Subsystem: "scan",
		Name:      "cycles_total",
		Help:      "Completed scan cycles by outcome (escalated, clean, failed).",
	}, []string{"outcome"})

	// CacheHits counts scan-cache hits that avoided a network call.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mailscan",
		Subsystem: "scan",
		Name:      "cache_hits_total",
		Help:      "Run-scoped cache hits by provider.",
	}, []string{"provider"})
)
