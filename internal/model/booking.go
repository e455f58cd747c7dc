package model

import "time"

// Booking is a committed purchase.  It is created together with its
// tickets in a single transaction and never modified afterwards.
//
// Fields:
//  ID            – UUID primary key.
//  UserID        – user who made the booking.
//  ShowID        – show being booked.
//  Holder        – hold token the seats were held under.
//  PaymentRef    – reference issued by the payment collaborator.
//  PromotionID   – applied promotion; nil for the no-promotion record.
//  PromoCode     – code of the applied promotion, empty when none.
//  SubtotalCents – sum of ticket prices.
//  DiscountCents – discount granted by the promotion.
//  TotalCents    – amount charged.
//  CreatedAt     – creation timestamp.
type Booking struct {
	ID            string    `json:"id"`
	UserID        uint64    `json:"user_id"`
	ShowID        uint64    `json:"show_id"`
	Holder        string    `json:"-"`
	PaymentRef    string    `json:"payment_ref"`
	PromotionID   *uint64   `json:"promotion_id,omitempty"`
	PromoCode     string    `json:"promo_code,omitempty"`
	SubtotalCents int64     `json:"subtotal_cents"`
	DiscountCents int64     `json:"discount_cents"`
	TotalCents    int64     `json:"total_cents"`
	CreatedAt     time.Time `json:"created_at"`
	Tickets       []Ticket  `json:"tickets"`
}

// Ticket is one booked seat of a booking.
type Ticket struct {
	ID         string         `json:"id" db:"id"`
	BookingID  string         `json:"booking_id" db:"booking_id"`
	ShowID     uint64         `json:"show_id" db:"show_id"`
	SeatID     uint64         `json:"seat_id" db:"seat_id"`
	Category   TicketCategory `json:"category" db:"category"`
	PriceCents int64          `json:"price_cents" db:"price_cents"`
}
