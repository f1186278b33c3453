// Package metrics declares the process's Prometheus instruments.
//
// Naming convention: namespace_subsystem_name, namespace "breakpoint",
// subsystem grouping by feature area (websocket, room, event, github,
// circuit_breaker, rate_limit).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "breakpoint",
		Subsystem: "websocket",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket connections.",
	})

	ActiveSSESubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "breakpoint",
		Subsystem: "sse",
		Name:      "subscribers_active",
		Help:      "Current number of connected SSE subscribers.",
	})

	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "breakpoint",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of live rooms.",
	})

	RoomPlayers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "breakpoint",
		Subsystem: "room",
		Name:      "players_count",
		Help:      "Number of players currently seated in each room.",
	}, []string{"room_code"})

	WebsocketFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "breakpoint",
		Subsystem: "websocket",
		Name:      "frames_total",
		Help:      "Total WebSocket frames processed, by message type and outcome.",
	}, []string{"message_type", "status"})

	FrameProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "breakpoint",
		Subsystem: "websocket",
		Name:      "frame_processing_seconds",
		Help:      "Time spent routing a single WebSocket frame.",
		Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5},
	}, []string{"message_type"})

	EventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "breakpoint",
		Subsystem: "event",
		Name:      "ingested_total",
		Help:      "Total events accepted into the Event Store, by source.",
	}, []string{"source"})

	EventsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "breakpoint",
		Subsystem: "event",
		Name:      "evicted_total",
		Help:      "Total events evicted from the Event Store for exceeding capacity.",
	})

	EventBroadcastSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "breakpoint",
		Subsystem: "event",
		Name:      "broadcast_skipped_total",
		Help:      "Total events a lagging subscriber missed on the broadcast channel.",
	})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "breakpoint",
		Subsystem: "circuit_breaker",
		Name:      "state",
		Help:      "Current circuit breaker state (0: Closed, 1: Open, 2: Half-Open).",
	}, []string{"service"})

	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "breakpoint",
		Subsystem: "rate_limit",
		Name:      "exceeded_total",
		Help:      "Total requests or frames rejected by a rate limiter.",
	}, []string{"surface"})

	GitHubPollDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "breakpoint",
		Subsystem: "github",
		Name:      "poll_duration_seconds",
		Help:      "Time spent polling a single GitHub repository's workflow runs.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"repo"})
)

func IncWebSocketConnection() { ActiveWebSocketConnections.Inc() }
func DecWebSocketConnection() { ActiveWebSocketConnections.Dec() }
func IncSSESubscriber()       { ActiveSSESubscribers.Inc() }
func DecSSESubscriber()       { ActiveSSESubscribers.Dec() }
