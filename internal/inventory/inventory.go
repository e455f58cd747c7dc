// Package inventory holds the per-show, per-seat state machine
// (AVAILABLE / HELD / BOOKED).  Every transition is conditioned on the
// current status and, where relevant, on the holder, so concurrent
// attempts on the same seat resolve to exactly one winner while
// operations on different seats never contend.
//
// Two implementations exist: Memory in this package and the MySQL-backed
// repository.ShowSeatRepo.
package inventory

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// SeatInventory is the single source of truth for ShowSeat status.
type SeatInventory interface {
	// Seed creates AVAILABLE rows for the given seats.  Pairs that
	// already exist are left as they are.
	Seed(ctx context.Context, showID uint64, seatIDs []uint64) error

	// TryHold moves a seat from AVAILABLE to HELD for holder until
	// now+ttl.  It returns ErrConflict if the seat is HELD or BOOKED.
	TryHold(ctx context.Context, showID, seatID uint64, holder string, ttl time.Duration) error

	// Release moves a seat from HELD back to AVAILABLE if holder holds
	// it, otherwise it returns ErrNotHeldByCaller and changes nothing.
	Release(ctx context.Context, showID, seatID uint64, holder string) error

	// ReleaseAll frees every HELD seat of the show regardless of holder.
	ReleaseAll(ctx context.Context, showID uint64) (int, error)

	// SweepExpired frees HELD seats whose expiry is at or before now.
	SweepExpired(ctx context.Context, showID uint64, now time.Time) (int, error)

	// Lookup returns the current rows for the requested seats.  Seats
	// that were never seeded are absent from the result.
	Lookup(ctx context.Context, showID uint64, seatIDs []uint64) (map[uint64]model.ShowSeat, error)

	// List returns every seat of the show ordered by seat ID.
	List(ctx context.Context, showID uint64) ([]model.ShowSeat, error)

	// HeldShows returns the IDs of shows with at least one HELD seat.
	HeldShows(ctx context.Context) ([]uint64, error)
}

// Tx is the write side of a unit of work.  Commit is the only way to
// move a seat to BOOKED, which keeps seat commits and booking rows in
// the same all-or-nothing scope.
type Tx interface {
	// Commit moves a seat from HELD to BOOKED if holder holds it and the
	// hold has not lapsed; otherwise ErrNotHeldByCaller.
	Commit(ctx context.Context, showID, seatID uint64, holder string) error
	InsertBooking(ctx context.Context, b *model.Booking) error
	InsertTicket(ctx context.Context, t *model.Ticket) error
}

// UnitOfWork runs fn inside a transaction.  If fn returns an error no
// write made through tx is persisted.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
