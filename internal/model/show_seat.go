package model

import "time"

// SeatStatus is the booking state of a seat for one show.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE"
	SeatHeld      SeatStatus = "HELD"
	SeatBooked    SeatStatus = "BOOKED"
)

// ShowSeat is the per-show instance of a seat.  There is exactly one
// show_seat record for every (show, seat) pair, created when the show is
// scheduled and mutated only through the seat inventory.
//
// Holder, HeldAt and HoldExpiresAt are set iff Status is SeatHeld.
//
// Fields:
//  ShowID        – the show to which this seat belongs.
//  SeatID        – the physical seat.
//  Status        – AVAILABLE, HELD or BOOKED.
//  Holder        – token of the party holding the seat.
//  HeldAt        – when the current hold was taken.
//  HoldExpiresAt – when the current hold lapses.
//  Version       – bumped on every transition.
type ShowSeat struct {
	ShowID        uint64     // show_seats.show_id
	SeatID        uint64     // show_seats.seat_id
	Status        SeatStatus // show_seats.status
	Holder        string     // show_seats.holder (nullable)
	HeldAt        *time.Time // show_seats.held_at (nullable)
	HoldExpiresAt *time.Time // show_seats.hold_expires_at (nullable)
	Version       uint32     // show_seats.version
}

// HeldBy reports whether the seat is held by holder and the hold is
// still live at now.  Expiry is evaluated here, at read time, so a hold
// that lapsed but has not been swept yet never counts as held.
func (s ShowSeat) HeldBy(holder string, now time.Time) bool {
	return s.Status == SeatHeld &&
		s.Holder == holder &&
		s.HoldExpiresAt != nil &&
		now.Before(*s.HoldExpiresAt)
}

// Expired reports whether the seat is held with an expiry at or before now.
func (s ShowSeat) Expired(now time.Time) bool {
	return s.Status == SeatHeld && s.HoldExpiresAt != nil && !s.HoldExpiresAt.After(now)
}
