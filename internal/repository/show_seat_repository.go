package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/cinema-booking-engine/internal/clock"
	"github.com/iliyamo/cinema-booking-engine/internal/inventory"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// showSeatRow mirrors the show_seats table.
type showSeatRow struct {
	ShowID        uint64         `db:"show_id"`
	SeatID        uint64         `db:"seat_id"`
	Status        string         `db:"status"`
	Holder        sql.NullString `db:"holder"`
	HeldAt        sql.NullTime   `db:"held_at"`
	HoldExpiresAt sql.NullTime   `db:"hold_expires_at"`
	Version       uint32         `db:"version"`
}

func (r showSeatRow) toModel() model.ShowSeat {
	s := model.ShowSeat{
		ShowID:  r.ShowID,
		SeatID:  r.SeatID,
		Status:  model.SeatStatus(r.Status),
		Holder:  r.Holder.String,
		Version: r.Version,
	}
	if r.HeldAt.Valid {
		t := r.HeldAt.Time.UTC()
		s.HeldAt = &t
	}
	if r.HoldExpiresAt.Valid {
		t := r.HoldExpiresAt.Time.UTC()
		s.HoldExpiresAt = &t
	}
	return s
}

const showSeatColumns = `show_id, seat_id, status, holder, held_at, hold_expires_at, version`

// ShowSeatRepo is the MySQL SeatInventory.  Every transition is a single
// conditional UPDATE on the (show_id, seat_id) primary key, so InnoDB's
// row lock is the per-seat lock.
type ShowSeatRepo struct {
	db    *sqlx.DB
	clock clock.Clock
}

var _ inventory.SeatInventory = (*ShowSeatRepo)(nil)

// NewShowSeatRepo constructs a ShowSeatRepo given a DB handle.
func NewShowSeatRepo(db *sqlx.DB, clk clock.Clock) *ShowSeatRepo {
	if clk == nil {
		clk = clock.Real{}
	}
	return &ShowSeatRepo{db: db, clock: clk}
}

// Seed inserts one AVAILABLE row per seat in a single statement.  Rows
// that already exist are left untouched.
func (r *ShowSeatRepo) Seed(ctx context.Context, showID uint64, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	var q strings.Builder
	q.WriteString(`INSERT IGNORE INTO show_seats (show_id, seat_id, status) VALUES `)
	args := make([]interface{}, 0, len(seatIDs)*2)
	for i, id := range seatIDs {
		if i > 0 {
			q.WriteString(",")
		}
		q.WriteString("(?, ?, 'AVAILABLE')")
		args = append(args, showID, id)
	}
	if _, err := r.db.ExecContext(ctx, q.String(), args...); err != nil {
		return fmt.Errorf("seed show %d: %w", showID, err)
	}
	return nil
}

func (r *ShowSeatRepo) TryHold(ctx context.Context, showID, seatID uint64, holder string, ttl time.Duration) error {
	now := r.clock.Now()
	res, err := r.db.ExecContext(ctx,
		`UPDATE show_seats
		    SET status = 'HELD', holder = ?, held_at = ?, hold_expires_at = ?, version = version + 1
		  WHERE show_id = ? AND seat_id = ? AND status = 'AVAILABLE'`,
		holder, now, now.Add(ttl), showID, seatID)
	if err != nil {
		return fmt.Errorf("hold seat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("hold seat: %w", err)
	}
	if n == 1 {
		return nil
	}
	exists, err := r.exists(ctx, showID, seatID)
	if err != nil {
		return err
	}
	if !exists {
		return inventory.ErrSeatNotFound
	}
	return inventory.ErrConflict
}

func (r *ShowSeatRepo) exists(ctx context.Context, showID, seatID uint64) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM show_seats WHERE show_id = ? AND seat_id = ?`, showID, seatID)
	if err != nil {
		return false, fmt.Errorf("seat exists: %w", err)
	}
	return n > 0, nil
}

const freeSeat = `status = 'AVAILABLE', holder = NULL, held_at = NULL, hold_expires_at = NULL, version = version + 1`

func (r *ShowSeatRepo) Release(ctx context.Context, showID, seatID uint64, holder string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE show_seats SET `+freeSeat+`
		  WHERE show_id = ? AND seat_id = ? AND status = 'HELD' AND holder = ?`,
		showID, seatID, holder)
	if err != nil {
		return fmt.Errorf("release seat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release seat: %w", err)
	}
	if n == 0 {
		return inventory.ErrNotHeldByCaller
	}
	return nil
}

func (r *ShowSeatRepo) ReleaseAll(ctx context.Context, showID uint64) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE show_seats SET `+freeSeat+` WHERE show_id = ? AND status = 'HELD'`, showID)
	if err != nil {
		return 0, fmt.Errorf("release all: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *ShowSeatRepo) SweepExpired(ctx context.Context, showID uint64, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE show_seats SET `+freeSeat+`
		  WHERE show_id = ? AND status = 'HELD' AND hold_expires_at <= ?`,
		showID, now)
	if err != nil {
		return 0, fmt.Errorf("sweep expired: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *ShowSeatRepo) Lookup(ctx context.Context, showID uint64, seatIDs []uint64) (map[uint64]model.ShowSeat, error) {
	out := make(map[uint64]model.ShowSeat, len(seatIDs))
	if len(seatIDs) == 0 {
		return out, nil
	}
	q, args, err := sqlx.In(`SELECT `+showSeatColumns+` FROM show_seats WHERE show_id = ? AND seat_id IN (?)`, showID, seatIDs)
	if err != nil {
		return nil, err
	}
	var rows []showSeatRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("lookup seats: %w", err)
	}
	for _, row := range rows {
		out[row.SeatID] = row.toModel()
	}
	return out, nil
}

func (r *ShowSeatRepo) List(ctx context.Context, showID uint64) ([]model.ShowSeat, error) {
	var rows []showSeatRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+showSeatColumns+` FROM show_seats WHERE show_id = ? ORDER BY seat_id`, showID)
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	out := make([]model.ShowSeat, len(rows))
	for i, row := range rows {
		out[i] = row.toModel()
	}
	return out, nil
}

func (r *ShowSeatRepo) HeldShows(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	if err := r.db.SelectContext(ctx, &ids,
		`SELECT DISTINCT show_id FROM show_seats WHERE status = 'HELD' ORDER BY show_id`); err != nil {
		return nil, fmt.Errorf("held shows: %w", err)
	}
	return ids, nil
}
