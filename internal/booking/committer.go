// Package booking turns a holder's held seats into a paid booking.
//
// A commit validates the holds, prices the selection and then, inside one
// unit of work, moves every seat from HELD to BOOKED and writes the
// booking with one ticket per seat.  Either all of it persists or none of
// it does.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-booking-engine/internal/clock"
	"github.com/iliyamo/cinema-booking-engine/internal/hold"
	"github.com/iliyamo/cinema-booking-engine/internal/inventory"
	"github.com/iliyamo/cinema-booking-engine/internal/metrics"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/pricing"
)

// Selection is one seat of a booking and the ticket category to sell
// for it.
type Selection struct {
	SeatID   uint64
	Category model.TicketCategory
}

// Request asks to book the seats Holder holds on ShowID.
type Request struct {
	ShowID     uint64
	UserID     uint64
	Holder     string
	Seats      []Selection
	PaymentRef string
	PromoCode  string
}

// EventPublisher is notified after a booking has been committed.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, b *model.Booking) error
}

// Reader loads committed bookings.
type Reader interface {
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
}

// Committer commits bookings.
type Committer struct {
	holds   *hold.Manager
	pricing *pricing.Engine
	uow     inventory.UnitOfWork
	events  EventPublisher
	clock   clock.Clock
	log     *logrus.Entry
	newID   func() string
}

// Option configures a Committer.
type Option func(*Committer)

// WithPublisher sets the publisher notified of confirmed bookings.
func WithPublisher(p EventPublisher) Option {
	return func(c *Committer) { c.events = p }
}

// WithLogger sets the committer's logger.
func WithLogger(l *logrus.Entry) Option {
	return func(c *Committer) {
		if l != nil {
			c.log = l
		}
	}
}

// NewCommitter returns a Committer.  Expiry is evaluated against the hold
// manager's clock.
func NewCommitter(holds *hold.Manager, engine *pricing.Engine, uow inventory.UnitOfWork, opts ...Option) *Committer {
	c := &Committer{
		holds:   holds,
		pricing: engine,
		uow:     uow,
		clock:   holds.Clock(),
		log:     logrus.NewEntry(logrus.StandardLogger()),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Commit books the requested seats.  See the package documentation for
// the sequence.  Failures are reported as:
//
//   - *SeatNotHeldError when a seat is not held by the holder up front,
//   - *SeatNoLongerHeldError when a hold is lost before the seat is booked,
//   - pricing.ErrUnknownCategory, pricing.ErrPromotionNotFound and
//     pricing.ErrPromotionExpired from pricing,
//   - *PersistenceError for any other storage failure.
//
// The committer never retries.
func (c *Committer) Commit(ctx context.Context, req Request) (*model.Booking, error) {
	log := c.log.WithFields(logrus.Fields{"show_id": req.ShowID, "holder": req.Holder})

	seats, err := normalize(req)
	if err != nil {
		metrics.Bookings.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, err
	}
	seatIDs := make([]uint64, len(seats))
	for i, s := range seats {
		seatIDs[i] = s.SeatID
	}

	missing, err := c.holds.Missing(ctx, req.ShowID, seatIDs, req.Holder)
	if err != nil {
		metrics.Bookings.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, &PersistenceError{Op: "validate holds", Err: err}
	}
	if len(missing) > 0 {
		metrics.Bookings.WithLabelValues(metrics.OutcomeSeatNotHeld).Inc()
		return nil, &SeatNotHeldError{SeatID: missing[0]}
	}

	now := c.clock.Now()
	b := &model.Booking{
		ID:         c.newID(),
		UserID:     req.UserID,
		ShowID:     req.ShowID,
		Holder:     req.Holder,
		PaymentRef: strings.TrimSpace(req.PaymentRef),
		CreatedAt:  now,
	}
	tickets := make([]model.Ticket, len(seats))
	var subtotal int64
	for i, s := range seats {
		price, err := c.pricing.Price(s.Category)
		if err != nil {
			metrics.Bookings.WithLabelValues(metrics.OutcomeRejected).Inc()
			return nil, err
		}
		subtotal += price
		tickets[i] = model.Ticket{
			ID:         c.newID(),
			BookingID:  b.ID,
			ShowID:     req.ShowID,
			SeatID:     s.SeatID,
			Category:   s.Category,
			PriceCents: price,
		}
	}
	promo, err := c.pricing.ResolvePromotion(ctx, req.PromoCode, now)
	if err != nil {
		metrics.Bookings.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, err
	}
	quote := c.pricing.ApplyDiscount(subtotal, promo)
	b.SubtotalCents = quote.SubtotalCents
	b.DiscountCents = quote.DiscountCents
	b.TotalCents = quote.TotalCents
	if !promo.IsNone() {
		id := promo.ID
		b.PromotionID = &id
		b.PromoCode = promo.Code
	}

	err = c.uow.WithTx(ctx, func(ctx context.Context, tx inventory.Tx) error {
		if err := tx.InsertBooking(ctx, b); err != nil {
			return &PersistenceError{Op: "insert booking", Err: err}
		}
		for i := range tickets {
			t := &tickets[i]
			if err := tx.Commit(ctx, req.ShowID, t.SeatID, req.Holder); err != nil {
				if errors.Is(err, inventory.ErrNotHeldByCaller) || errors.Is(err, inventory.ErrSeatNotFound) {
					return &SeatNoLongerHeldError{SeatID: t.SeatID}
				}
				return &PersistenceError{Op: fmt.Sprintf("commit seat %d", t.SeatID), Err: err}
			}
			if err := tx.InsertTicket(ctx, t); err != nil {
				return &PersistenceError{Op: fmt.Sprintf("insert ticket for seat %d", t.SeatID), Err: err}
			}
		}
		return nil
	})
	if err != nil {
		var lost *SeatNoLongerHeldError
		switch {
		case errors.As(err, &lost):
			metrics.Bookings.WithLabelValues(metrics.OutcomeSeatNoLongerHeld).Inc()
			log.WithField("seat_id", lost.SeatID).Warn("booking aborted: hold lost before commit")
			return nil, lost
		case errors.Is(err, ErrPersistence):
		default:
			err = &PersistenceError{Op: "commit booking", Err: err}
		}
		metrics.Bookings.WithLabelValues(metrics.OutcomeFailed).Inc()
		log.WithError(err).Error("booking commit failed")
		return nil, err
	}

	b.Tickets = tickets
	metrics.Bookings.WithLabelValues(metrics.OutcomeConfirmed).Inc()
	metrics.BookedSeats.Add(float64(len(tickets)))
	log.WithFields(logrus.Fields{
		"booking_id":  b.ID,
		"seats":       len(tickets),
		"total_cents": b.TotalCents,
	}).Info("booking confirmed")

	if c.events != nil {
		if err := c.events.PublishBookingConfirmed(ctx, b); err != nil {
			log.WithError(err).WithField("booking_id", b.ID).Warn("publish booking confirmed failed")
		}
	}
	return b, nil
}

// normalize checks the request and returns its seats in ascending seat
// order, the order rows are locked in.
func normalize(req Request) ([]Selection, error) {
	if req.Holder == "" {
		return nil, ErrHolderRequired
	}
	if len(req.Seats) == 0 {
		return nil, ErrNoSeats
	}
	if strings.TrimSpace(req.PaymentRef) == "" {
		return nil, ErrPaymentRefRequired
	}
	seen := make(map[uint64]struct{}, len(req.Seats))
	out := make([]Selection, 0, len(req.Seats))
	for _, s := range req.Seats {
		if _, dup := seen[s.SeatID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateSeat, s.SeatID)
		}
		seen[s.SeatID] = struct{}{}
		out = append(out, Selection{SeatID: s.SeatID, Category: model.ParseCategory(string(s.Category))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatID < out[j].SeatID })
	return out, nil
}
