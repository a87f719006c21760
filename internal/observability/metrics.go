package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	launchesTotal        *prometheus.CounterVec
	launchLatencySeconds *prometheus.HistogramVec
	launchRejectsTotal   *prometheus.CounterVec
	tokenIssuedTotal     *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors for the launch surfaces.
func RegisterMetrics() {
	registerOnce.Do(func() {
		launchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lti_launches_total",
			Help: "Total number of LTI launches decided, by surface and outcome.",
		}, []string{"surface", "outcome"})

		launchLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lti_launch_latency_seconds",
			Help:    "Latency distribution for launch decisions.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"surface"})

		launchRejectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lti_launch_rejects_total",
			Help: "Total number of launches rejected before the state machine ran.",
		}, []string{"surface", "failure_class"})

		tokenIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lti_tokens_issued_total",
			Help: "Total number of ephemeral tokens issued, by class.",
		}, []string{"class"})

		prometheus.MustRegister(launchesTotal, launchLatencySeconds, launchRejectsTotal, tokenIssuedTotal)
	})
}

// Launches exposes the counter for decided launches.
func Launches() *prometheus.CounterVec {
	RegisterMetrics()
	return launchesTotal
}

// LaunchLatency exposes the latency histogram for launch decisions.
func LaunchLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return launchLatencySeconds
}

// LaunchRejects exposes the counter for rejected launches.
func LaunchRejects() *prometheus.CounterVec {
	RegisterMetrics()
	return launchRejectsTotal
}

// TokensIssued exposes the counter for issued ephemeral tokens.
func TokensIssued() *prometheus.CounterVec {
	RegisterMetrics()
	return tokenIssuedTotal
}
