// Package metrics holds the Prometheus instruments used across the service.
// All collectors are registered with the default registry in init, so
// mounting Handler on /metrics is enough to expose them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	NavigationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webring_navigation_total",
			Help: "Ring navigation requests by direction and outcome.",
		}, []string{"direction", "outcome"})

	ModerationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webring_moderation_total",
			Help: "Moderation actions by decision and outcome.",
		}, []string{"decision", "outcome"})

	JoinTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webring_join_attempts_total",
			Help: "Join attempts by outcome.",
		}, []string{"outcome"})

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webring_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"})

	HashQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "webring_password_hash_queue_depth",
			Help: "Password hashing jobs waiting for a worker.",
		})
)

func init() {
	prometheus.MustRegister(
		NavigationTotal,
		ModerationTotal,
		JoinTotal,
		HTTPRequestDuration,
		HashQueueDepth,
	)
}

func Handler() http.Handler { return promhttp.Handler() }
