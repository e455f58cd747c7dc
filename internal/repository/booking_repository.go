package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-booking-engine/internal/inventory"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// BookingRepo reads committed bookings.  Writes go through UnitOfWork.
type BookingRepo struct {
	db *sqlx.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sqlx.DB) *BookingRepo { return &BookingRepo{db: db} }

// GetBooking loads a booking and its tickets ordered by seat.
func (r *BookingRepo) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	var row bookingRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, user_id, show_id, holder, payment_ref, promotion_id, promo_code,
		        subtotal_cents, discount_cents, total_cents, created_at
		   FROM bookings WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, inventory.ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	b := row.toModel()

	b.Tickets = []model.Ticket{}
	err = r.db.SelectContext(ctx, &b.Tickets,
		`SELECT id, booking_id, show_id, seat_id, category, price_cents
		   FROM tickets WHERE booking_id = ? ORDER BY seat_id`, id)
	if err != nil {
		return nil, fmt.Errorf("get booking tickets: %w", err)
	}
	return b, nil
}
