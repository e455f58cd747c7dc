package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-engine/internal/clock"
	"github.com/iliyamo/cinema-booking-engine/internal/inventory"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/pricing"
)

// PublicHandler serves the unauthenticated read endpoints.
type PublicHandler struct {
	Inventory inventory.SeatInventory
	Pricing   *pricing.Engine
	Clock     clock.Clock
}

// NewPublicHandler panics if a dependency is nil.
func NewPublicHandler(inv inventory.SeatInventory, engine *pricing.Engine, clk clock.Clock) *PublicHandler {
	if inv == nil || engine == nil {
		panic("nil dependency passed to NewPublicHandler")
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &PublicHandler{Inventory: inv, Pricing: engine, Clock: clk}
}

// TicketCategories handles GET /v1/ticket-categories.
func (h *PublicHandler) TicketCategories(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"items": h.Pricing.Prices().Rows()})
}

type seatView struct {
	SeatID        uint64           `json:"seat_id"`
	Status        model.SeatStatus `json:"status"`
	HoldExpiresAt *time.Time       `json:"hold_expires_at,omitempty"`
}

// ShowSeats handles GET /v1/shows/:id/seats.  A hold that has lapsed but
// was not swept yet is still reported as HELD: the seat cannot be held
// again until the sweeper frees it.
func (h *PublicHandler) ShowSeats(c echo.Context) error {
	id, ok := showID(c)
	if !ok {
		return badRequest(c, "invalid show id")
	}
	seats, err := h.Inventory.List(c.Request().Context(), id)
	if err != nil {
		return internalError(c, err, "failed to load seats")
	}
	if len(seats) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
	}
	now := h.Clock.Now()
	out := make([]seatView, 0, len(seats))
	available := 0
	for _, s := range seats {
		v := seatView{SeatID: s.SeatID, Status: s.Status}
		if s.Status == model.SeatHeld {
			v.HoldExpiresAt = s.HoldExpiresAt
		}
		if s.Status == model.SeatAvailable {
			available++
		}
		out = append(out, v)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"show_id":   id,
		"available": available,
		"as_of":     now,
		"items":     out,
	})
}
