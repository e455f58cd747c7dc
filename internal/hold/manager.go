// Package hold manages holders' time-bounded claims on seats on top of the
// seat inventory, and reclaims lapsed claims in the background.
package hold

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-booking-engine/internal/clock"
	"github.com/iliyamo/cinema-booking-engine/internal/inventory"
	"github.com/iliyamo/cinema-booking-engine/internal/metrics"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

const (
	// DefaultTTL applies when neither the caller nor the configuration
	// chooses a hold duration.
	DefaultTTL = 5 * time.Minute
	// MinTTL and MaxTTL bound a per-request TTL override.
	MinTTL = time.Second
	MaxTTL = 30 * time.Minute
)

var (
	// ErrNoActiveHold is returned by Current when the holder holds no seat
	// of the show.
	ErrNoActiveHold = errors.New("no active hold")
	// ErrNoSeats is returned when a request names no seat.
	ErrNoSeats = errors.New("no seats requested")
	// ErrInvalidTTL is returned for a TTL override outside [MinTTL, MaxTTL].
	ErrInvalidTTL = errors.New("hold ttl out of range")
	// ErrHolderRequired is returned when the holder token is empty.
	ErrHolderRequired = errors.New("holder required")
)

// Result partitions the seats of a hold request.  Seats in Held are held
// by the caller until ExpiresAt; the caller decides what to do about the
// rest.  Successful holds are never rolled back because another seat of
// the same request conflicted.
type Result struct {
	Held      []uint64  `json:"held"`
	Conflicts []uint64  `json:"conflicts"`
	Unknown   []uint64  `json:"unknown"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Manager implements hold, release and validation on a SeatInventory.
type Manager struct {
	inv        inventory.SeatInventory
	clock      clock.Clock
	defaultTTL time.Duration
	log        *logrus.Entry
}

// Option configures a Manager.
type Option func(*Manager)

// WithDefaultTTL overrides DefaultTTL.
func WithDefaultTTL(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.defaultTTL = d
		}
	}
}

// WithLogger sets the logger used for hold events.
func WithLogger(l *logrus.Entry) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// NewManager returns a Manager over inv.
func NewManager(inv inventory.SeatInventory, clk clock.Clock, opts ...Option) *Manager {
	if clk == nil {
		clk = clock.Real{}
	}
	m := &Manager{
		inv:        inv,
		clock:      clk,
		defaultTTL: DefaultTTL,
		log:        logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Clock returns the clock expiry is evaluated against.
func (m *Manager) Clock() clock.Clock { return m.clock }

// DefaultTTL returns the TTL used when a request does not override it.
func (m *Manager) DefaultTTL() time.Duration { return m.defaultTTL }

// HoldSeats tries to hold each seat independently for holder.  ttl <= 0
// selects the default.  A non-nil error means the inventory failed; the
// returned Result still reports the seats held before the failure.
func (m *Manager) HoldSeats(ctx context.Context, showID uint64, seatIDs []uint64, holder string, ttl time.Duration) (Result, error) {
	if holder == "" {
		return Result{}, ErrHolderRequired
	}
	seatIDs = dedupe(seatIDs)
	if len(seatIDs) == 0 {
		return Result{}, ErrNoSeats
	}
	if ttl <= 0 {
		ttl = m.defaultTTL
	} else if ttl < MinTTL || ttl > MaxTTL {
		return Result{}, fmt.Errorf("%w: %s", ErrInvalidTTL, ttl)
	}

	res := Result{
		Held:      []uint64{},
		Conflicts: []uint64{},
		Unknown:   []uint64{},
		ExpiresAt: m.clock.Now().Add(ttl),
	}
	for _, id := range seatIDs {
		err := m.inv.TryHold(ctx, showID, id, holder, ttl)
		switch {
		case err == nil:
			res.Held = append(res.Held, id)
			metrics.SeatHolds.WithLabelValues(metrics.OutcomeHeld).Inc()
		case errors.Is(err, inventory.ErrConflict):
			res.Conflicts = append(res.Conflicts, id)
			metrics.SeatHolds.WithLabelValues(metrics.OutcomeConflict).Inc()
		case errors.Is(err, inventory.ErrSeatNotFound):
			res.Unknown = append(res.Unknown, id)
			metrics.SeatHolds.WithLabelValues(metrics.OutcomeUnknown).Inc()
		default:
			return res, fmt.Errorf("hold seat %d: %w", id, err)
		}
	}

	m.log.WithFields(logrus.Fields{
		"show_id":   showID,
		"holder":    holder,
		"held":      len(res.Held),
		"conflicts": len(res.Conflicts),
		"unknown":   len(res.Unknown),
	}).Info("seats held")
	return res, nil
}

// ReleaseSeats releases the given seats if holder holds them.  Seats not
// held by holder are skipped.  It returns the number released.
func (m *Manager) ReleaseSeats(ctx context.Context, showID uint64, seatIDs []uint64, holder string) (int, error) {
	if holder == "" {
		return 0, ErrHolderRequired
	}
	n := 0
	for _, id := range dedupe(seatIDs) {
		err := m.inv.Release(ctx, showID, id, holder)
		switch {
		case err == nil:
			n++
		case errors.Is(err, inventory.ErrNotHeldByCaller):
		default:
			metrics.SeatReleases.Add(float64(n))
			return n, fmt.Errorf("release seat %d: %w", id, err)
		}
	}
	metrics.SeatReleases.Add(float64(n))
	if n > 0 {
		m.log.WithFields(logrus.Fields{"show_id": showID, "holder": holder, "released": n}).Info("seats released")
	}
	return n, nil
}

// ReleaseHold releases every seat of the show that holder holds,
// including holds that lapsed but were not swept yet.
func (m *Manager) ReleaseHold(ctx context.Context, showID uint64, holder string) (int, error) {
	seats, err := m.inv.List(ctx, showID)
	if err != nil {
		return 0, fmt.Errorf("list seats: %w", err)
	}
	var ids []uint64
	for _, s := range seats {
		if s.Status == model.SeatHeld && s.Holder == holder {
			ids = append(ids, s.SeatID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return m.ReleaseSeats(ctx, showID, ids, holder)
}

// ReleaseAllForShow returns every HELD seat of the show to AVAILABLE,
// whoever holds it.
func (m *Manager) ReleaseAllForShow(ctx context.Context, showID uint64) (int, error) {
	n, err := m.inv.ReleaseAll(ctx, showID)
	if err != nil {
		return 0, fmt.Errorf("release all: %w", err)
	}
	metrics.SeatReleases.Add(float64(n))
	m.log.WithFields(logrus.Fields{"show_id": showID, "released": n}).Info("all holds released")
	return n, nil
}

// Missing returns, in request order, the seats that holder does not hold
// right now.  Expiry is checked against the clock on every call.
func (m *Manager) Missing(ctx context.Context, showID uint64, seatIDs []uint64, holder string) ([]uint64, error) {
	seats, err := m.inv.Lookup(ctx, showID, seatIDs)
	if err != nil {
		return nil, fmt.Errorf("lookup seats: %w", err)
	}
	now := m.clock.Now()
	var missing []uint64
	for _, id := range seatIDs {
		s, ok := seats[id]
		if !ok || !s.HeldBy(holder, now) {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// ValidateHeld reports whether holder holds every seat right now.
func (m *Manager) ValidateHeld(ctx context.Context, showID uint64, seatIDs []uint64, holder string) (bool, error) {
	missing, err := m.Missing(ctx, showID, seatIDs, holder)
	if err != nil {
		return false, err
	}
	return len(missing) == 0, nil
}

// Current assembles holder's live hold on the show.  ExpiresAt is the
// earliest expiry among the held seats.
func (m *Manager) Current(ctx context.Context, showID uint64, holder string) (model.Hold, error) {
	seats, err := m.inv.List(ctx, showID)
	if err != nil {
		return model.Hold{}, fmt.Errorf("list seats: %w", err)
	}
	now := m.clock.Now()
	h := model.Hold{Holder: holder, ShowID: showID}
	for _, s := range seats {
		if !s.HeldBy(holder, now) {
			continue
		}
		h.SeatIDs = append(h.SeatIDs, s.SeatID)
		if s.HeldAt != nil && (h.CreatedAt.IsZero() || s.HeldAt.Before(h.CreatedAt)) {
			h.CreatedAt = *s.HeldAt
		}
		if h.ExpiresAt.IsZero() || s.HoldExpiresAt.Before(h.ExpiresAt) {
			h.ExpiresAt = *s.HoldExpiresAt
		}
	}
	if len(h.SeatIDs) == 0 {
		return model.Hold{}, ErrNoActiveHold
	}
	return h, nil
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
