// Package metrics exposes Prometheus collectors for room/session
// lifecycle and turn-timer behavior, mounted at /metrics via
// promhttp.Handler the way the teacher's main.go did.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// ActiveRooms is the number of live Room Actors.
	ActiveRooms = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ludo_active_rooms",
		Help: "Number of Room Actors currently running.",
	})

	// ActiveSessions is the number of open WebSocket connections.
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ludo_active_sessions",
		Help: "Number of open WebSocket sessions.",
	})

	// TurnDuration records the time between consecutive turn-timer
	// restarts in a room (a move, a missed turn, or a seat advance), so
	// a bonus turn starts a new observation for the same seat.
	TurnDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ludo_turn_duration_seconds",
		Help:    "Wall-clock time between consecutive turn-timer restarts.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 15, 20, 30},
	})

	// PersistenceFailures counts best-effort persistence calls that
	// returned an error (chat append, turn log append, credit).
	PersistenceFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ludo_persistence_failures_total",
		Help: "Count of failed best-effort persistence calls, by operation.",
	}, []string{"operation"})
)

func init() {
	prometheus.MustRegister(ActiveRooms, ActiveSessions, TurnDuration, PersistenceFailures)
}
