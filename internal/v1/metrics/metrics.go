package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the whiteboard backend.
//
// Naming convention: namespace_subsystem_name
// - namespace: whiteboard (application-level grouping)
// - subsystem: websocket, room, ratelimit (feature-level grouping)
// - name: specific metric (connections_active, events_total, etc.)
//
// Metric Types:
// - Gauge: Current state (connections, rooms, members)
// - Counter: Cumulative events (events processed, rate limit hits)
// - Histogram: Latency distributions (event pipeline time)

var (
	// ActiveConnections tracks the current number of open WebSocket sessions.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "whiteboard",
		Subsystem: "websocket",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket connections",
	})

	// ActiveRooms tracks the current number of rooms in the registry.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "whiteboard",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of active rooms",
	})

	// RoomMembers tracks the number of connected sessions per room. A Gauge
	// per room rather than a histogram because the current count is what an
	// operator dashboards.
	RoomMembers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "whiteboard",
		Subsystem: "room",
		Name:      "members_count",
		Help:      "Number of connected sessions in each room",
	}, []string{"room_id"})

	// EventsTotal counts events through the submission pipeline by outcome.
	// status is one of: accepted, invalid, conflict, saturated, not_in_room.
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "whiteboard",
		Subsystem: "room",
		Name:      "events_total",
		Help:      "Total whiteboard events processed",
	}, []string{"event_type", "status"})

	// EventProcessingDuration tracks time spent in the submission pipeline
	// (decode through append), per event type.
	EventProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "whiteboard",
		Subsystem: "room",
		Name:      "event_processing_seconds",
		Help:      "Time spent processing whiteboard events",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25},
	}, []string{"event_type"})

	// BroadcastsTotal counts fan-out deliveries of accepted events.
	BroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "whiteboard",
		Subsystem: "websocket",
		Name:      "broadcasts_total",
		Help:      "Total EVENT frames delivered to sessions",
	})

	// RateLimitRequests counts requests that passed rate limiting.
	RateLimitRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "whiteboard",
		Subsystem: "ratelimit",
		Name:      "requests_total",
		Help:      "Total requests checked against rate limits",
	}, []string{"path"})

	// RateLimitExceeded counts requests rejected by rate limiting.
	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "whiteboard",
		Subsystem: "ratelimit",
		Name:      "exceeded_total",
		Help:      "Total requests rejected by rate limits",
	}, []string{"path", "limit_type"})

	// CircuitBreakerState exposes breaker state (0 closed, 1 open, 2 half-open).
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "whiteboard",
		Subsystem: "ratelimit",
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state per backend (0=closed, 1=open, 2=half-open)",
	}, []string{"backend"})
)

func IncConnection() {
	ActiveConnections.Inc()
}

func DecConnection() {
	ActiveConnections.Dec()
}
