package router

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-engine/internal/booking"
	"github.com/iliyamo/cinema-booking-engine/internal/clock"
	"github.com/iliyamo/cinema-booking-engine/internal/config"
	"github.com/iliyamo/cinema-booking-engine/internal/handler"
	"github.com/iliyamo/cinema-booking-engine/internal/hold"
	"github.com/iliyamo/cinema-booking-engine/internal/inventory"
	"github.com/iliyamo/cinema-booking-engine/internal/middleware"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/pricing"
	"github.com/iliyamo/cinema-booking-engine/internal/utils"
)

const secret = "router-test-secret"

var start = time.Date(2026, 7, 4, 19, 30, 0, 0, time.UTC)

type testServer struct {
	e   *echo.Echo
	clk *clock.Manual
	inv *inventory.Memory
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	log := logrus.NewEntry(l)

	clk := clock.NewManual(start)
	inv := inventory.NewMemory(clk)
	promos, err := pricing.NewMemoryPromotions(
		model.Promotion{ID: 1, Code: "SAVE25", Kind: model.DiscountPercent, Value: 25, StartsAt: start.Add(-time.Hour), EndsAt: start.Add(time.Hour)},
		model.Promotion{ID: 2, Code: "SPRING", Kind: model.DiscountFlat, Value: 500, StartsAt: start.Add(-48 * time.Hour), EndsAt: start.Add(-24 * time.Hour)},
	)
	require.NoError(t, err)
	engine := pricing.NewEngine(pricing.DefaultPrices, promos)
	holds := hold.NewManager(inv, clk, hold.WithLogger(log))
	committer := booking.NewCommitter(holds, engine, inv, booking.WithLogger(log))

	e := echo.New()
	e.Use(middleware.CorrelationID(l))
	RegisterRoutes(e)
	RegisterPublic(e, handler.NewPublicHandler(inv, engine, clk), middleware.NewRedisCache(config.CacheConfig{}, nil))
	RegisterCustomer(e, handler.NewCustomerHandler(holds, committer, inv), secret, middleware.NewTokenBucket(config.RateLimitConfig{}, nil))
	RegisterOwner(e, handler.NewOwnerHandler(inv, holds), secret)
	return &testServer{e: e, clk: clk, inv: inv}
}

func bearer(t *testing.T, userID uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, userID, role, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func (s *testServer) do(t *testing.T, method, path, auth string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (s *testServer) seed(t *testing.T, show string, seats ...uint64) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/owner/shows/"+show+"/seats", bearer(t, 1, middleware.RoleOwner), echo.Map{"seat_ids": seats})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

type seatMap struct {
	Available int `json:"available"`
	Items     []struct {
		SeatID uint64           `json:"seat_id"`
		Status model.SeatStatus `json:"status"`
	} `json:"items"`
}

func TestOperationalEndpoints(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(middleware.CorrelationHeader))

	rec = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTicketCategories(t *testing.T) {
	s := newServer(t)
	rec := s.do(t, http.MethodGet, "/v1/ticket-categories", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Items []model.CategoryPrice `json:"items"`
	}
	decode(t, rec, &body)
	assert.ElementsMatch(t, []model.CategoryPrice{
		{Category: model.CategoryAdult, PriceCents: 1500},
		{Category: model.CategoryChild, PriceCents: 1000},
		{Category: model.CategorySenior, PriceCents: 1200},
	}, body.Items)
}

func TestOwnerRoutesRequireOwnerRole(t *testing.T) {
	s := newServer(t)
	body := echo.Map{"seat_ids": []uint64{1}}

	rec := s.do(t, http.MethodPost, "/v1/owner/shows/7/seats", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/owner/shows/7/seats", bearer(t, 5, middleware.RoleCustomer), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/owner/shows/7/seats", bearer(t, 1, middleware.RoleOwner), echo.Map{"seat_ids": []uint64{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSeatMap(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/v1/shows/7/seats", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodGet, "/v1/shows/abc/seats", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.seed(t, "7", 3, 1, 2)
	s.seed(t, "7", 2, 4)

	rec = s.do(t, http.MethodGet, "/v1/shows/7/seats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var m seatMap
	decode(t, rec, &m)
	assert.Equal(t, 4, m.Available)
	require.Len(t, m.Items, 4)
	for i, it := range m.Items {
		assert.Equal(t, uint64(i+1), it.SeatID)
		assert.Equal(t, model.SeatAvailable, it.Status)
	}
}

func TestHoldConfirmAndReadBack(t *testing.T) {
	s := newServer(t)
	s.seed(t, "7", 1, 2, 3)
	alice := bearer(t, 10, middleware.RoleCustomer)
	bob := bearer(t, 20, middleware.RoleCustomer)

	rec := s.do(t, http.MethodPost, "/v1/shows/7/hold", alice, echo.Map{"seat_ids": []uint64{1, 2}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res hold.Result
	decode(t, rec, &res)
	assert.Equal(t, []uint64{1, 2}, res.Held)
	assert.Empty(t, res.Conflicts)
	assert.Equal(t, start.Add(hold.DefaultTTL), res.ExpiresAt.UTC())

	rec = s.do(t, http.MethodPost, "/v1/shows/7/hold", bob, echo.Map{"seat_ids": []uint64{2, 3, 9}})
	require.Equal(t, http.StatusCreated, rec.Code)
	decode(t, rec, &res)
	assert.Equal(t, []uint64{3}, res.Held)
	assert.Equal(t, []uint64{2}, res.Conflicts)
	assert.Equal(t, []uint64{9}, res.Unknown)

	rec = s.do(t, http.MethodGet, "/v1/shows/7/hold", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cur struct {
		SeatIDs []uint64 `json:"seat_ids"`
	}
	decode(t, rec, &cur)
	assert.Equal(t, []uint64{1, 2}, cur.SeatIDs)

	confirm := echo.Map{
		"seats": []echo.Map{
			{"seat_id": 2, "category": "adult"},
			{"seat_id": 1, "category": "ADULT"},
		},
		"payment_ref": "pay-123",
		"promo_code":  "save25",
	}
	rec = s.do(t, http.MethodPost, "/v1/shows/7/confirm", alice, confirm)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var b model.Booking
	decode(t, rec, &b)
	assert.Equal(t, int64(3000), b.SubtotalCents)
	assert.Equal(t, int64(750), b.DiscountCents)
	assert.Equal(t, int64(2250), b.TotalCents)
	assert.Equal(t, "SAVE25", b.PromoCode)
	require.Len(t, b.Tickets, 2)

	rec = s.do(t, http.MethodGet, "/v1/bookings/"+b.ID, alice, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/v1/bookings/"+b.ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodGet, "/v1/bookings/does-not-exist", alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/shows/7/seats", "", nil)
	var m seatMap
	decode(t, rec, &m)
	assert.Equal(t, 0, m.Available)
	assert.Equal(t, model.SeatBooked, m.Items[0].Status)
	assert.Equal(t, model.SeatBooked, m.Items[1].Status)
	assert.Equal(t, model.SeatHeld, m.Items[2].Status)

	rec = s.do(t, http.MethodGet, "/v1/shows/7/hold", alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfirmErrors(t *testing.T) {
	s := newServer(t)
	s.seed(t, "7", 1, 2, 3)
	alice := bearer(t, 10, middleware.RoleCustomer)
	bob := bearer(t, 20, middleware.RoleCustomer)

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/v1/shows/7/hold", alice, echo.Map{"seat_ids": []uint64{1}}).Code)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/v1/shows/7/hold", bob, echo.Map{"seat_ids": []uint64{3}}).Code)

	seats := func(ids ...uint64) []echo.Map {
		out := make([]echo.Map, len(ids))
		for i, id := range ids {
			out[i] = echo.Map{"seat_id": id, "category": "ADULT"}
		}
		return out
	}
	tests := []struct {
		name   string
		body   echo.Map
		status int
		seat   uint64
	}{
		{"seat held by another", echo.Map{"seats": seats(1, 3), "payment_ref": "p"}, http.StatusConflict, 3},
		{"seat never held", echo.Map{"seats": seats(2), "payment_ref": "p"}, http.StatusConflict, 2},
		{"unknown promotion", echo.Map{"seats": seats(1), "payment_ref": "p", "promo_code": "NOPE"}, http.StatusNotFound, 0},
		{"expired promotion", echo.Map{"seats": seats(1), "payment_ref": "p", "promo_code": "SPRING"}, http.StatusUnprocessableEntity, 0},
		{"unknown category", echo.Map{"seats": []echo.Map{{"seat_id": 1, "category": "VIP"}}, "payment_ref": "p"}, http.StatusBadRequest, 0},
		{"no seats", echo.Map{"seats": []echo.Map{}, "payment_ref": "p"}, http.StatusBadRequest, 0},
		{"duplicate seat", echo.Map{"seats": seats(1, 1), "payment_ref": "p"}, http.StatusBadRequest, 0},
		{"missing payment ref", echo.Map{"seats": seats(1)}, http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/v1/shows/7/confirm", alice, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.seat != 0 {
				var body struct {
					SeatID uint64 `json:"seat_id"`
				}
				decode(t, rec, &body)
				assert.Equal(t, tt.seat, body.SeatID)
			}
		})
	}

	// Nothing was booked and alice still holds seat 1.
	assert.Equal(t, 0, s.inv.BookingCount())
	rec := s.do(t, http.MethodGet, "/v1/shows/7/hold", alice, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestConfirmAfterExpiry(t *testing.T) {
	s := newServer(t)
	s.seed(t, "7", 1)
	alice := bearer(t, 10, middleware.RoleCustomer)

	rec := s.do(t, http.MethodPost, "/v1/shows/7/hold", alice, echo.Map{"seat_ids": []uint64{1}, "ttl_seconds": 30})
	require.Equal(t, http.StatusCreated, rec.Code)
	s.clk.Advance(31 * time.Second)

	rec = s.do(t, http.MethodPost, "/v1/shows/7/confirm", alice, echo.Map{
		"seats":       []echo.Map{{"seat_id": 1, "category": "CHILD"}},
		"payment_ref": "p",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 0, s.inv.BookingCount())
}

func TestHoldRejectsBadInput(t *testing.T) {
	s := newServer(t)
	s.seed(t, "7", 1)
	alice := bearer(t, 10, middleware.RoleCustomer)

	tests := []struct {
		name string
		path string
		body echo.Map
	}{
		{"no seats", "/v1/shows/7/hold", echo.Map{"seat_ids": []uint64{}}},
		{"only zero ids", "/v1/shows/7/hold", echo.Map{"seat_ids": []uint64{0}}},
		{"ttl too long", "/v1/shows/7/hold", echo.Map{"seat_ids": []uint64{1}, "ttl_seconds": 7200}},
		{"negative ttl", "/v1/shows/7/hold", echo.Map{"seat_ids": []uint64{1}, "ttl_seconds": -5}},
		{"bad show id", "/v1/shows/zero/hold", echo.Map{"seat_ids": []uint64{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, tt.path, alice, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	rec := s.do(t, http.MethodPost, "/v1/shows/7/hold", "", echo.Map{"seat_ids": []uint64{1}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(t, http.MethodPost, "/v1/shows/7/hold", bearer(t, 1, middleware.RoleOwner), echo.Map{"seat_ids": []uint64{1}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHoldWithNothingHeldIsOK(t *testing.T) {
	s := newServer(t)
	s.seed(t, "7", 1)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/v1/shows/7/hold", bearer(t, 10, middleware.RoleCustomer), echo.Map{"seat_ids": []uint64{1}}).Code)

	rec := s.do(t, http.MethodPost, "/v1/shows/7/hold", bearer(t, 20, middleware.RoleCustomer), echo.Map{"seat_ids": []uint64{1}})
	assert.Equal(t, http.StatusOK, rec.Code)
	var res hold.Result
	decode(t, rec, &res)
	assert.Empty(t, res.Held)
	assert.Equal(t, []uint64{1}, res.Conflicts)
}

func TestReleaseHolds(t *testing.T) {
	s := newServer(t)
	s.seed(t, "7", 1, 2, 3)
	alice := bearer(t, 10, middleware.RoleCustomer)
	bob := bearer(t, 20, middleware.RoleCustomer)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/v1/shows/7/hold", alice, echo.Map{"seat_ids": []uint64{1, 2}}).Code)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/v1/shows/7/hold", bob, echo.Map{"seat_ids": []uint64{3}}).Code)

	var out struct {
		Released int `json:"released"`
	}

	// Seats alice does not hold are skipped.
	rec := s.do(t, http.MethodDelete, "/v1/shows/7/hold", alice, echo.Map{"seat_ids": []uint64{1, 3}})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &out)
	assert.Equal(t, 1, out.Released)

	rec = s.do(t, http.MethodDelete, "/v1/shows/7/hold", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &out)
	assert.Equal(t, 1, out.Released)

	rec = s.do(t, http.MethodDelete, "/v1/owner/shows/7/holds", bearer(t, 1, middleware.RoleOwner), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &out)
	assert.Equal(t, 1, out.Released)

	rec = s.do(t, http.MethodGet, "/v1/shows/7/seats", "", nil)
	var m seatMap
	decode(t, rec, &m)
	assert.Equal(t, 3, m.Available)
}

func TestSeedFromCatalogSeats(t *testing.T) {
	s := newServer(t)
	layout := []model.Seat{
		{ID: 101, HallID: 3, RowLabel: "A", SeatNumber: 1},
		{ID: 102, HallID: 3, RowLabel: "A", SeatNumber: 2},
	}
	rec := s.do(t, http.MethodPost, "/v1/owner/shows/8/seats", bearer(t, 1, middleware.RoleOwner), echo.Map{"seats": layout})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/v1/shows/8/seats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var m seatMap
	decode(t, rec, &m)
	require.Len(t, m.Items, 2)
	assert.Equal(t, uint64(101), m.Items[0].SeatID)
	assert.Equal(t, uint64(102), m.Items[1].SeatID)
}
