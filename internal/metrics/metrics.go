// Package metrics holds the Prometheus collectors of the booking engine.
// They are registered on the default registry and exposed at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeHeld     = "held"
	OutcomeConflict = "conflict"
	OutcomeUnknown  = "unknown"

	OutcomeConfirmed        = "confirmed"
	OutcomeSeatNotHeld      = "seat_not_held"
	OutcomeSeatNoLongerHeld = "seat_no_longer_held"
	OutcomeRejected         = "rejected"
	OutcomeFailed           = "failed"
)

var (
	// SeatHolds counts per-seat hold attempts by outcome.
	SeatHolds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cinema",
		Name:      "seat_holds_total",
		Help:      "Seat hold attempts by outcome.",
	}, []string{"outcome"})

	// SeatReleases counts seats returned to AVAILABLE by their holder or an owner.
	SeatReleases = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cinema",
		Name:      "seat_releases_total",
		Help:      "Seats released before expiry.",
	})

	// SeatsSwept counts expired holds reclaimed by the sweeper.
	SeatsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cinema",
		Name:      "seats_swept_total",
		Help:      "Expired seat holds reclaimed by the sweeper.",
	})

	// Bookings counts commit attempts by outcome.
	Bookings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cinema",
		Name:      "bookings_total",
		Help:      "Booking commit attempts by outcome.",
	}, []string{"outcome"})

	// BookedSeats counts seats moved to BOOKED.
	BookedSeats = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cinema",
		Name:      "booked_seats_total",
		Help:      "Seats booked.",
	})
)
