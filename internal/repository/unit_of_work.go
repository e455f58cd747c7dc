package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-booking-engine/internal/clock"
	"github.com/iliyamo/cinema-booking-engine/internal/inventory"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// UnitOfWork runs a function inside one MySQL transaction.  Seat rows
// moved to BOOKED stay locked by InnoDB until the transaction ends.
type UnitOfWork struct {
	db    *sqlx.DB
	clock clock.Clock
}

var _ inventory.UnitOfWork = (*UnitOfWork)(nil)

// NewUnitOfWork returns a UnitOfWork on db.
func NewUnitOfWork(db *sqlx.DB, clk clock.Clock) *UnitOfWork {
	if clk == nil {
		clk = clock.Real{}
	}
	return &UnitOfWork{db: db, clock: clk}
}

// WithTx commits when fn returns nil and rolls back otherwise.
func (u *UnitOfWork) WithTx(ctx context.Context, fn func(ctx context.Context, tx inventory.Tx) error) (err error) {
	tx, err := u.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				err = errors.Join(err, rollbackErr)
			}
			return
		}
		err = tx.Commit()
	}()

	return fn(ctx, &sqlTx{tx: tx, clock: u.clock})
}

type sqlTx struct {
	tx    *sqlx.Tx
	clock clock.Clock
}

// Commit moves a live hold of holder to BOOKED.  The expiry comparison
// happens in the same statement as the transition.
func (t *sqlTx) Commit(ctx context.Context, showID, seatID uint64, holder string) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE show_seats
		    SET status = 'BOOKED', holder = NULL, held_at = NULL, hold_expires_at = NULL, version = version + 1
		  WHERE show_id = ? AND seat_id = ? AND status = 'HELD' AND holder = ? AND hold_expires_at > ?`,
		showID, seatID, holder, t.clock.Now())
	if err != nil {
		return fmt.Errorf("book seat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("book seat: %w", err)
	}
	if n == 0 {
		return inventory.ErrNotHeldByCaller
	}
	return nil
}

// bookingRow mirrors the bookings table.
type bookingRow struct {
	ID            string        `db:"id"`
	UserID        uint64        `db:"user_id"`
	ShowID        uint64        `db:"show_id"`
	Holder        string        `db:"holder"`
	PaymentRef    string        `db:"payment_ref"`
	PromotionID   sql.NullInt64 `db:"promotion_id"`
	PromoCode     string        `db:"promo_code"`
	SubtotalCents int64         `db:"subtotal_cents"`
	DiscountCents int64         `db:"discount_cents"`
	TotalCents    int64         `db:"total_cents"`
	CreatedAt     sql.NullTime  `db:"created_at"`
}

func newBookingRow(b *model.Booking) bookingRow {
	row := bookingRow{
		ID:            b.ID,
		UserID:        b.UserID,
		ShowID:        b.ShowID,
		Holder:        b.Holder,
		PaymentRef:    b.PaymentRef,
		PromoCode:     b.PromoCode,
		SubtotalCents: b.SubtotalCents,
		DiscountCents: b.DiscountCents,
		TotalCents:    b.TotalCents,
		CreatedAt:     sql.NullTime{Time: b.CreatedAt, Valid: true},
	}
	if b.PromotionID != nil {
		row.PromotionID = sql.NullInt64{Int64: int64(*b.PromotionID), Valid: true}
	}
	return row
}

func (r bookingRow) toModel() *model.Booking {
	b := &model.Booking{
		ID:            r.ID,
		UserID:        r.UserID,
		ShowID:        r.ShowID,
		Holder:        r.Holder,
		PaymentRef:    r.PaymentRef,
		PromoCode:     r.PromoCode,
		SubtotalCents: r.SubtotalCents,
		DiscountCents: r.DiscountCents,
		TotalCents:    r.TotalCents,
		CreatedAt:     r.CreatedAt.Time.UTC(),
	}
	if r.PromotionID.Valid {
		id := uint64(r.PromotionID.Int64)
		b.PromotionID = &id
	}
	return b
}

func (t *sqlTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	_, err := t.tx.NamedExecContext(ctx,
		`INSERT INTO bookings (id, user_id, show_id, holder, payment_ref, promotion_id, promo_code,
		                       subtotal_cents, discount_cents, total_cents, created_at)
		 VALUES (:id, :user_id, :show_id, :holder, :payment_ref, :promotion_id, :promo_code,
		         :subtotal_cents, :discount_cents, :total_cents, :created_at)`,
		newBookingRow(b))
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("insert booking %s: %w", b.ID, ErrDuplicate)
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (t *sqlTx) InsertTicket(ctx context.Context, tk *model.Ticket) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO tickets (id, booking_id, show_id, seat_id, category, price_cents) VALUES (?, ?, ?, ?, ?, ?)`,
		tk.ID, tk.BookingID, tk.ShowID, tk.SeatID, string(tk.Category), tk.PriceCents)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("insert ticket for seat %d: %w", tk.SeatID, ErrDuplicate)
		}
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}
