// Package queue defines the booking.confirmed message and the consumer
// that turns it into an audit log line.
package queue

import (
	"time"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// BookingConfirmedQueue is the durable queue confirmed bookings are
// published to.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published after a booking commits.  It carries
// enough for downstream consumers to log or notify without reading the
// primary database.
type BookingConfirmedEvent struct {
	BookingID     string          `json:"booking_id"`
	UserID        uint64          `json:"user_id"`
	ShowID        uint64          `json:"show_id"`
	Seats         []TicketSummary `json:"seats"`
	PromoCode     string          `json:"promo_code,omitempty"`
	SubtotalCents int64           `json:"subtotal_cents"`
	DiscountCents int64           `json:"discount_cents"`
	TotalCents    int64           `json:"total_cents"`
	PaymentRef    string          `json:"payment_ref"`
	ConfirmedAt   string          `json:"confirmed_at"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// TicketSummary is one seat of a confirmed booking.
type TicketSummary struct {
	SeatID     uint64 `json:"seat_id"`
	Category   string `json:"category"`
	PriceCents int64  `json:"price_cents"`
}

// NewBookingConfirmedEvent builds the event for b.
func NewBookingConfirmedEvent(b *model.Booking, correlationID string) BookingConfirmedEvent {
	seats := make([]TicketSummary, len(b.Tickets))
	for i, t := range b.Tickets {
		seats[i] = TicketSummary{SeatID: t.SeatID, Category: string(t.Category), PriceCents: t.PriceCents}
	}
	return BookingConfirmedEvent{
		BookingID:     b.ID,
		UserID:        b.UserID,
		ShowID:        b.ShowID,
		Seats:         seats,
		PromoCode:     b.PromoCode,
		SubtotalCents: b.SubtotalCents,
		DiscountCents: b.DiscountCents,
		TotalCents:    b.TotalCents,
		PaymentRef:    b.PaymentRef,
		ConfirmedAt:   b.CreatedAt.UTC().Format(time.RFC3339),
		CorrelationID: correlationID,
	}
}
