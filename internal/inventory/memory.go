package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/cinema-booking-engine/internal/clock"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// ErrBookingNotFound is returned when a booking lookup yields nothing.
var ErrBookingNotFound = errors.New("booking not found")

type seatKey struct {
	show uint64
	seat uint64
}

// slot owns one ShowSeat.  Its mutex is the per-seat lock; nothing else
// in Memory serialises seat transitions.
type slot struct {
	mu   sync.Mutex
	seat model.ShowSeat
}

// Memory is an in-process SeatInventory and UnitOfWork.  The slot map is
// only written by Seed, so its RWMutex is taken for reading on every
// transition and never blocks transitions on other seats.
//
// Inside WithTx, committed slots stay locked until the unit of work
// finishes, the way an UPDATE holds a row lock until COMMIT.  fn must
// not call back into Memory for a seat it has already committed.
type Memory struct {
	clock clock.Clock

	mu    sync.RWMutex
	slots map[seatKey]*slot
	shows map[uint64][]uint64

	bmu      sync.RWMutex
	bookings map[string]model.Booking
	tickets  map[seatKey]model.Ticket
}

var (
	_ SeatInventory = (*Memory)(nil)
	_ UnitOfWork    = (*Memory)(nil)
)

// NewMemory returns an empty in-memory inventory.
func NewMemory(clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Memory{
		clock:    clk,
		slots:    make(map[seatKey]*slot),
		shows:    make(map[uint64][]uint64),
		bookings: make(map[string]model.Booking),
		tickets:  make(map[seatKey]model.Ticket),
	}
}

func (m *Memory) lookup(showID, seatID uint64) *slot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.slots[seatKey{showID, seatID}]
}

func (m *Memory) showSlots(showID uint64) []*slot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.shows[showID]
	out := make([]*slot, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.slots[seatKey{showID, id}])
	}
	return out
}

func (m *Memory) Seed(_ context.Context, showID uint64, seatIDs []uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	added := false
	for _, id := range seatIDs {
		k := seatKey{showID, id}
		if _, ok := m.slots[k]; ok {
			continue
		}
		m.slots[k] = &slot{seat: model.ShowSeat{ShowID: showID, SeatID: id, Status: model.SeatAvailable}}
		m.shows[showID] = append(m.shows[showID], id)
		added = true
	}
	if added {
		ids := m.shows[showID]
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return nil
}

func (m *Memory) TryHold(_ context.Context, showID, seatID uint64, holder string, ttl time.Duration) error {
	s := m.lookup(showID, seatID)
	if s == nil {
		return ErrSeatNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seat.Status != model.SeatAvailable {
		return ErrConflict
	}
	now := m.clock.Now()
	exp := now.Add(ttl)
	s.seat.Status = model.SeatHeld
	s.seat.Holder = holder
	s.seat.HeldAt = &now
	s.seat.HoldExpiresAt = &exp
	s.seat.Version++
	return nil
}

func (m *Memory) Release(_ context.Context, showID, seatID uint64, holder string) error {
	s := m.lookup(showID, seatID)
	if s == nil {
		return ErrNotHeldByCaller
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seat.Status != model.SeatHeld || s.seat.Holder != holder {
		return ErrNotHeldByCaller
	}
	free(&s.seat)
	return nil
}

func (m *Memory) ReleaseAll(_ context.Context, showID uint64) (int, error) {
	n := 0
	for _, s := range m.showSlots(showID) {
		s.mu.Lock()
		if s.seat.Status == model.SeatHeld {
			free(&s.seat)
			n++
		}
		s.mu.Unlock()
	}
	return n, nil
}

func (m *Memory) SweepExpired(_ context.Context, showID uint64, now time.Time) (int, error) {
	n := 0
	for _, s := range m.showSlots(showID) {
		s.mu.Lock()
		if s.seat.Expired(now) {
			free(&s.seat)
			n++
		}
		s.mu.Unlock()
	}
	return n, nil
}

func (m *Memory) Lookup(_ context.Context, showID uint64, seatIDs []uint64) (map[uint64]model.ShowSeat, error) {
	out := make(map[uint64]model.ShowSeat, len(seatIDs))
	for _, id := range seatIDs {
		s := m.lookup(showID, id)
		if s == nil {
			continue
		}
		s.mu.Lock()
		out[id] = s.seat
		s.mu.Unlock()
	}
	return out, nil
}

func (m *Memory) List(_ context.Context, showID uint64) ([]model.ShowSeat, error) {
	slots := m.showSlots(showID)
	out := make([]model.ShowSeat, 0, len(slots))
	for _, s := range slots {
		s.mu.Lock()
		out = append(out, s.seat)
		s.mu.Unlock()
	}
	return out, nil
}

func (m *Memory) HeldShows(_ context.Context) ([]uint64, error) {
	m.mu.RLock()
	showIDs := make([]uint64, 0, len(m.shows))
	for id := range m.shows {
		showIDs = append(showIDs, id)
	}
	m.mu.RUnlock()
	sort.Slice(showIDs, func(i, j int) bool { return showIDs[i] < showIDs[j] })

	var out []uint64
	for _, showID := range showIDs {
		for _, s := range m.showSlots(showID) {
			s.mu.Lock()
			held := s.seat.Status == model.SeatHeld
			s.mu.Unlock()
			if held {
				out = append(out, showID)
				break
			}
		}
	}
	return out, nil
}

// GetBooking returns a committed booking with its tickets.
func (m *Memory) GetBooking(_ context.Context, id string) (*model.Booking, error) {
	m.bmu.RLock()
	defer m.bmu.RUnlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	b.Tickets = append([]model.Ticket(nil), b.Tickets...)
	return &b, nil
}

// TicketFor returns the ticket issued for a seat, if any.
func (m *Memory) TicketFor(showID, seatID uint64) (model.Ticket, bool) {
	m.bmu.RLock()
	defer m.bmu.RUnlock()
	t, ok := m.tickets[seatKey{showID, seatID}]
	return t, ok
}

// BookingCount returns the number of committed bookings.
func (m *Memory) BookingCount() int {
	m.bmu.RLock()
	defer m.bmu.RUnlock()
	return len(m.bookings)
}

func (m *Memory) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memTx{m: m, staged: make(map[seatKey]*slot)}
	defer tx.unlock()
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.apply()
}

func free(s *model.ShowSeat) {
	s.Status = model.SeatAvailable
	s.Holder = ""
	s.HeldAt = nil
	s.HoldExpiresAt = nil
	s.Version++
}

type memTx struct {
	m        *Memory
	order    []seatKey
	staged   map[seatKey]*slot
	bookings []model.Booking
	tickets  []model.Ticket
}

func (tx *memTx) Commit(_ context.Context, showID, seatID uint64, holder string) error {
	k := seatKey{showID, seatID}
	if _, ok := tx.staged[k]; ok {
		return ErrNotHeldByCaller
	}
	s := tx.m.lookup(showID, seatID)
	if s == nil {
		return ErrSeatNotFound
	}
	s.mu.Lock()
	if !s.seat.HeldBy(holder, tx.m.clock.Now()) {
		s.mu.Unlock()
		return ErrNotHeldByCaller
	}
	tx.staged[k] = s
	tx.order = append(tx.order, k)
	return nil
}

func (tx *memTx) InsertBooking(_ context.Context, b *model.Booking) error {
	tx.m.bmu.RLock()
	_, dup := tx.m.bookings[b.ID]
	tx.m.bmu.RUnlock()
	if dup {
		return fmt.Errorf("insert booking %s: duplicate id", b.ID)
	}
	cp := *b
	cp.Tickets = nil
	tx.bookings = append(tx.bookings, cp)
	return nil
}

func (tx *memTx) InsertTicket(_ context.Context, t *model.Ticket) error {
	k := seatKey{t.ShowID, t.SeatID}
	if _, ok := tx.staged[k]; !ok {
		return fmt.Errorf("insert ticket for seat %d: seat not committed in this transaction", t.SeatID)
	}
	known := false
	for _, b := range tx.bookings {
		if b.ID == t.BookingID {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("insert ticket for seat %d: unknown booking %s", t.SeatID, t.BookingID)
	}
	tx.tickets = append(tx.tickets, *t)
	return nil
}

// apply publishes the staged writes.  Seat slots are still locked.
func (tx *memTx) apply() error {
	tx.m.bmu.Lock()
	defer tx.m.bmu.Unlock()
	for _, t := range tx.tickets {
		if _, dup := tx.m.tickets[seatKey{t.ShowID, t.SeatID}]; dup {
			return fmt.Errorf("insert ticket for seat %d: seat already ticketed", t.SeatID)
		}
	}
	for _, k := range tx.order {
		s := tx.staged[k]
		s.seat.Status = model.SeatBooked
		s.seat.Holder = ""
		s.seat.HeldAt = nil
		s.seat.HoldExpiresAt = nil
		s.seat.Version++
	}
	for _, b := range tx.bookings {
		for _, t := range tx.tickets {
			if t.BookingID == b.ID {
				b.Tickets = append(b.Tickets, t)
			}
		}
		tx.m.bookings[b.ID] = b
	}
	for _, t := range tx.tickets {
		tx.m.tickets[seatKey{t.ShowID, t.SeatID}] = t
	}
	return nil
}

func (tx *memTx) unlock() {
	for _, k := range tx.order {
		tx.staged[k].mu.Unlock()
	}
	tx.order = nil
}
