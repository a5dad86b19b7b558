package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Control API metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talkbridge_http_requests_total",
			Help: "Total control API requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talkbridge_http_request_duration_seconds",
			Help:    "Control API request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Translation gateway metrics
	GatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talkbridge_gateway_requests_total",
			Help: "Total requests made to the translation server",
		},
		[]string{"op", "outcome"}, // outcome: "ok", "api_error", "comm_error"
	)

	GatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talkbridge_gateway_request_duration_seconds",
			Help:    "Translation server request duration",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"op"},
	)

	// Conversation metrics
	UtterancesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talkbridge_utterances_sent_total",
			Help: "Total utterances translated and sent",
		},
	)

	UtterancesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talkbridge_utterances_rejected_total",
			Help: "Total utterances rejected before upload",
		},
		[]string{"reason"}, // "empty", "too_short", "peer_absent", "busy"
	)

	MessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talkbridge_messages_received_total",
			Help: "Total peer messages appended to the thread",
		},
	)

	// Realtime metrics
	RealtimeReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talkbridge_realtime_reconnects_total",
			Help: "Total realtime reconnection attempts",
		},
	)

	RealtimeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talkbridge_realtime_events_total",
			Help: "Total realtime events received",
		},
		[]string{"event"},
	)

	// Archive metrics
	ArchiveLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talkbridge_archive_latency_seconds",
			Help:    "Transcript archive operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
		[]string{"backend"},
	)
)
