package booking

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-engine/internal/clock"
	"github.com/iliyamo/cinema-booking-engine/internal/hold"
	"github.com/iliyamo/cinema-booking-engine/internal/inventory"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/pricing"
)

const (
	show = uint64(11)
	a1   = uint64(1)
	a2   = uint64(2)
	a3   = uint64(3)
)

var start = time.Date(2026, 7, 4, 19, 30, 0, 0, time.UTC)

type recordingPublisher struct {
	mu       sync.Mutex
	bookings []*model.Booking
	err      error
}

func (p *recordingPublisher) PublishBookingConfirmed(_ context.Context, b *model.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bookings = append(p.bookings, b)
	return p.err
}

type fixture struct {
	clk       *clock.Manual
	inv       *inventory.Memory
	holds     *hold.Manager
	engine    *pricing.Engine
	publisher *recordingPublisher
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewManual(start)
	inv := inventory.NewMemory(clk)
	require.NoError(t, inv.Seed(context.Background(), show, []uint64{a1, a2, a3}))
	promos, err := pricing.NewMemoryPromotions(
		model.Promotion{ID: 25, Code: "SAVE25", Kind: model.DiscountPercent, Value: 25, StartsAt: start.Add(-time.Hour), EndsAt: start.Add(time.Hour)},
		model.Promotion{ID: 26, Code: "OLD", Kind: model.DiscountPercent, Value: 10, StartsAt: start.Add(-48 * time.Hour), EndsAt: start.Add(-24 * time.Hour)},
	)
	require.NoError(t, err)
	return &fixture{
		clk:       clk,
		inv:       inv,
		holds:     hold.NewManager(inv, clk, hold.WithLogger(quietLogger())),
		engine:    pricing.NewEngine(pricing.DefaultPrices, promos),
		publisher: &recordingPublisher{},
	}
}

func (f *fixture) committer(uow inventory.UnitOfWork) *Committer {
	if uow == nil {
		uow = f.inv
	}
	return NewCommitter(f.holds, f.engine, uow, WithPublisher(f.publisher), WithLogger(quietLogger()))
}

func (f *fixture) hold(t *testing.T, holder string, ttl time.Duration, seats ...uint64) {
	t.Helper()
	res, err := f.holds.HoldSeats(context.Background(), show, seats, holder, ttl)
	require.NoError(t, err)
	require.Equal(t, seats, res.Held)
}

func adults(seats ...uint64) []Selection {
	out := make([]Selection, len(seats))
	for i, s := range seats {
		out[i] = Selection{SeatID: s, Category: model.CategoryAdult}
	}
	return out
}

// assertBookedIffTicketed checks that every BOOKED seat has a ticket and
// every ticket belongs to a BOOKED seat.
func assertBookedIffTicketed(t *testing.T, inv *inventory.Memory) {
	t.Helper()
	seats, err := inv.List(context.Background(), show)
	require.NoError(t, err)
	for _, s := range seats {
		_, ticketed := inv.TicketFor(show, s.SeatID)
		assert.Equal(t, s.Status == model.SeatBooked, ticketed, "seat %d status %s", s.SeatID, s.Status)
	}
}

func TestCommitter_HappyPathWithPromotion(t *testing.T) {
	f := newFixture(t)
	f.hold(t, "user:1", time.Minute, a1, a2)

	b, err := f.committer(nil).Commit(context.Background(), Request{
		ShowID:     show,
		UserID:     1,
		Holder:     "user:1",
		Seats:      adults(a2, a1),
		PaymentRef: "pay_123",
		PromoCode:  "save25",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, int64(3000), b.SubtotalCents)
	assert.Equal(t, int64(750), b.DiscountCents)
	assert.Equal(t, int64(2250), b.TotalCents)
	require.NotNil(t, b.PromotionID)
	assert.Equal(t, uint64(25), *b.PromotionID)
	assert.Equal(t, "SAVE25", b.PromoCode)
	require.Len(t, b.Tickets, 2)
	assert.Equal(t, a1, b.Tickets[0].SeatID)
	assert.Equal(t, a2, b.Tickets[1].SeatID)
	for _, tk := range b.Tickets {
		assert.Equal(t, b.ID, tk.BookingID)
		assert.Equal(t, int64(1500), tk.PriceCents)
	}

	stored, err := f.inv.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.TotalCents, stored.TotalCents)
	assert.Len(t, stored.Tickets, 2)

	assertBookedIffTicketed(t, f.inv)
	require.Len(t, f.publisher.bookings, 1)
	assert.Equal(t, b.ID, f.publisher.bookings[0].ID)
}

func TestCommitter_NoPromotion(t *testing.T) {
	f := newFixture(t)
	f.hold(t, "user:1", time.Minute, a1)

	b, err := f.committer(nil).Commit(context.Background(), Request{
		ShowID:     show,
		Holder:     "user:1",
		Seats:      []Selection{{SeatID: a1, Category: "child"}},
		PaymentRef: "pay_1",
	})
	require.NoError(t, err)
	assert.Nil(t, b.PromotionID)
	assert.Empty(t, b.PromoCode)
	assert.Equal(t, int64(1000), b.TotalCents)
	assert.Equal(t, model.CategoryChild, b.Tickets[0].Category)
}

func TestCommitter_ReleasedSeatAbortsWholeBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hold(t, "x", time.Minute, a1, a2)

	_, err := f.holds.ReleaseSeats(ctx, show, []uint64{a2}, "x")
	require.NoError(t, err)

	_, err = f.committer(nil).Commit(ctx, Request{ShowID: show, Holder: "x", Seats: adults(a1, a2), PaymentRef: "pay"})
	var notHeld *SeatNotHeldError
	require.ErrorAs(t, err, &notHeld)
	assert.Equal(t, a2, notHeld.SeatID)

	assert.Zero(t, f.inv.BookingCount())
	seats, err := f.inv.Lookup(ctx, show, []uint64{a1})
	require.NoError(t, err)
	assert.Equal(t, model.SeatHeld, seats[a1].Status)
	assert.Equal(t, "x", seats[a1].Holder)
	assertBookedIffTicketed(t, f.inv)
	assert.Empty(t, f.publisher.bookings)
}

func TestCommitter_SeatHeldBySomeoneElse(t *testing.T) {
	f := newFixture(t)
	f.hold(t, "x", time.Minute, a1)
	f.hold(t, "y", time.Minute, a2)

	_, err := f.committer(nil).Commit(context.Background(), Request{ShowID: show, Holder: "x", Seats: adults(a1, a2), PaymentRef: "pay"})
	var notHeld *SeatNotHeldError
	require.ErrorAs(t, err, &notHeld)
	assert.Equal(t, a2, notHeld.SeatID)
}

// advancingUnitOfWork moves the clock forward after validation and
// before the unit of work starts.
type advancingUnitOfWork struct {
	inner inventory.UnitOfWork
	clk   *clock.Manual
	by    time.Duration
}

func (u advancingUnitOfWork) WithTx(ctx context.Context, fn func(ctx context.Context, tx inventory.Tx) error) error {
	u.clk.Advance(u.by)
	return u.inner.WithTx(ctx, fn)
}

func TestCommitter_HoldExpiresBetweenValidateAndCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hold(t, "x", time.Minute, a1, a3)
	f.clk.Advance(30 * time.Second)
	f.hold(t, "x", 40*time.Second, a2)

	uow := advancingUnitOfWork{inner: f.inv, clk: f.clk, by: 35 * time.Second}
	_, err := f.committer(uow).Commit(ctx, Request{ShowID: show, Holder: "x", Seats: adults(a1, a2, a3), PaymentRef: "pay"})

	var lost *SeatNoLongerHeldError
	require.ErrorAs(t, err, &lost)
	assert.Equal(t, a1, lost.SeatID)

	assert.Zero(t, f.inv.BookingCount())
	for _, seat := range []uint64{a1, a2, a3} {
		_, ticketed := f.inv.TicketFor(show, seat)
		assert.False(t, ticketed, "seat %d", seat)
	}
	seats, err := f.inv.Lookup(ctx, show, []uint64{a2})
	require.NoError(t, err)
	assert.Equal(t, model.SeatHeld, seats[a2].Status)
	assertBookedIffTicketed(t, f.inv)
}

func TestCommitter_LastSeatLostRollsBackEarlierSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hold(t, "x", 2*time.Minute, a1, a2)
	f.hold(t, "x", 30*time.Second, a3)

	uow := advancingUnitOfWork{inner: f.inv, clk: f.clk, by: 31 * time.Second}
	_, err := f.committer(uow).Commit(ctx, Request{ShowID: show, Holder: "x", Seats: adults(a1, a2, a3), PaymentRef: "pay"})

	var lost *SeatNoLongerHeldError
	require.ErrorAs(t, err, &lost)
	assert.Equal(t, a3, lost.SeatID)

	seats, err := f.inv.List(ctx, show)
	require.NoError(t, err)
	assert.Equal(t, model.SeatHeld, seats[0].Status)
	assert.Equal(t, model.SeatHeld, seats[1].Status)
	assertBookedIffTicketed(t, f.inv)
}

func TestCommitter_RejectsBadInput(t *testing.T) {
	f := newFixture(t)
	f.hold(t, "x", time.Minute, a1, a2)
	c := f.committer(nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"no seats", Request{ShowID: show, Holder: "x", PaymentRef: "pay"}, ErrNoSeats},
		{"no holder", Request{ShowID: show, Seats: adults(a1), PaymentRef: "pay"}, ErrHolderRequired},
		{"no payment ref", Request{ShowID: show, Holder: "x", Seats: adults(a1), PaymentRef: "  "}, ErrPaymentRefRequired},
		{"duplicate seat", Request{ShowID: show, Holder: "x", Seats: adults(a1, a1), PaymentRef: "pay"}, ErrDuplicateSeat},
		{"unknown category", Request{ShowID: show, Holder: "x", Seats: []Selection{{SeatID: a1, Category: "VIP"}}, PaymentRef: "pay"}, pricing.ErrUnknownCategory},
		{"unknown promotion", Request{ShowID: show, Holder: "x", Seats: adults(a1), PaymentRef: "pay", PromoCode: "NOPE"}, pricing.ErrPromotionNotFound},
		{"expired promotion", Request{ShowID: show, Holder: "x", Seats: adults(a1), PaymentRef: "pay", PromoCode: "OLD"}, pricing.ErrPromotionExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Commit(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Zero(t, f.inv.BookingCount())
	ok, err := f.holds.ValidateHeld(ctx, show, []uint64{a1, a2}, "x")
	require.NoError(t, err)
	assert.True(t, ok, "rejected requests leave holds in place")
}

type brokenUnitOfWork struct{}

func (brokenUnitOfWork) WithTx(context.Context, func(context.Context, inventory.Tx) error) error {
	return errors.New("begin tx: connection refused")
}

func TestCommitter_PersistenceFailure(t *testing.T) {
	f := newFixture(t)
	f.hold(t, "x", time.Minute, a1)

	_, err := f.committer(brokenUnitOfWork{}).Commit(context.Background(), Request{ShowID: show, Holder: "x", Seats: adults(a1), PaymentRef: "pay"})
	require.ErrorIs(t, err, ErrPersistence)
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Error(), "connection refused")
}

func TestCommitter_PublishFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")
	f.hold(t, "x", time.Minute, a1)

	b, err := f.committer(nil).Commit(context.Background(), Request{ShowID: show, Holder: "x", Seats: adults(a1), PaymentRef: "pay"})
	require.NoError(t, err)
	assert.NotNil(t, b)
	assert.Equal(t, 1, f.inv.BookingCount())
}

func TestCommitter_ConcurrentCommitsBookOnce(t *testing.T) {
	f := newFixture(t)
	f.hold(t, "x", time.Minute, a1, a2)
	c := f.committer(nil)

	const attempts = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Commit(context.Background(), Request{ShowID: show, Holder: "x", Seats: adults(a1, a2), PaymentRef: "pay"})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			var notHeld *SeatNotHeldError
			var lost *SeatNoLongerHeldError
			if !errors.As(err, &notHeld) && !errors.As(err, &lost) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, f.inv.BookingCount())
	assertBookedIffTicketed(t, f.inv)
}
