package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swarm_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swarm_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Protocol metrics
	AgentsRegistered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swarm_agents_registered_total",
			Help: "Total agent registrations",
		},
		[]string{"existing"}, // "true" for re-connects
	)

	MessagesRelayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "swarm_messages_relayed_total",
			Help: "Total messages accepted by /v1/send",
		},
	)

	PollRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "swarm_polls_total",
			Help: "Total successful /v1/messages polls",
		},
	)

	ReplayRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "swarm_replay_rejections_total",
			Help: "Total sends rejected for nonce reuse",
		},
	)

	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swarm_auth_failures_total",
			Help: "Total signature verification failures",
		},
		[]string{"endpoint"},
	)

	StaleCursors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "swarm_stale_cursors_total",
			Help: "Total polls rejected for cursor staleness",
		},
	)
)
